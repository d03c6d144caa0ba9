package storefront

type Conf struct {
	Host              string `json:"host"`
	ClientID          string `json:"client_id"`           // ID of this App as a Client of the storefront API
	JobResultEndpoint string `json:"job_result_endpoint"` // POST target for finished jobs. empty = no callbacks
	JWKSEndpoint      string `json:"jwks_endpoint"`       // default /.well-known/jwks.json
	Timeout           string `json:"timeout"`             // per request, default 10s
}

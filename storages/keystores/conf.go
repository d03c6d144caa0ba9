package keystores

// Conf is loaded from config/.keystores.json
type Conf struct {
	Type            string `json:"type"`             // "local"
	PrivateKeyDir   string `json:"private_key_dir"`  // where new client key pairs are generated
	PublicKeyDir    string `json:"public_key_dir"`   // <kid>_public.pem of every API client
	StorefrontJWKS  bool   `json:"storefront_jwks"`  // also trust the keys the storefront publishes
	RefreshInterval int    `json:"refresh_interval"` // minutes between reloads, default 15
}

const DefaultRefreshMinutes = 15

// RefreshMinutes returns the minutes of the hour a reload runs at
func (c Conf) RefreshMinutes() []int {
	step := c.RefreshInterval
	if step <= 0 || step > 60 {
		step = DefaultRefreshMinutes
	}
	var mins []int
	for m := 0; m < 60; m += step {
		mins = append(mins, m)
	}
	return mins
}

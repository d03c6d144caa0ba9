package sqldb

type Conf struct {
	Type     string `json:"type"` // mysql, pgsql
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	PW       string `json:"pw"`
	DB       string `json:"db"`
	TZ       string `json:"tz"`        // Connection Timezone
	DSN      string `json:"dsn"`       // To Overwrite Default DSN
	MaxConns int    `json:"max_conns"` // pool size, default 10
}

func (c *Conf) PoolSize() int {
	if c.MaxConns <= 0 {
		return 10
	}
	return c.MaxConns
}

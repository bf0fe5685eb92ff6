package cfg

import "time"

type Cfg struct {
	// Server configuration
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Fetch configuration
	ProxyPrefix  string
	UserAgent    string
	FetchTimeout int // seconds
	WorkerCount  int
	QueueSize    int

	// Session configuration
	SessionTTL   int // seconds
	MessagesFile string
	Language     string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}

func (c *Cfg) GetFetchTimeout() time.Duration {
	if c.FetchTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.FetchTimeout) * time.Second
}

func (c *Cfg) GetSessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.SessionTTL) * time.Second
}

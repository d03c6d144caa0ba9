package db

import "log"

// Closer is any database client owned by the app
type Closer interface {
	Close() error
}

// CloseClient closes c and logs the outcome. Errors are not returned.
func CloseClient(name string, c Closer) {
	if c == nil {
		log.Printf("[INFO] `%s` Nothing to Close", name)
		return
	}
	if err := c.Close(); err != nil {
		log.Printf("[WARN] Failed to Close `%s`: %v", name, err)
	} else {
		log.Printf("[INFO] `%s` Closed", name)
	}
}

package instance

import "os"

// ID identifies this process in logs. It prefers an explicit id, then the
// platform dyno name, then the hostname.
func ID() string {
	for _, key := range []string{"SHOPWISH_INSTANCE_ID", "DYNO", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}

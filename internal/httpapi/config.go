package httpapi

const defaultMaxBodyBytes int64 = 16 << 10

var maxBodyBytes = defaultMaxBodyBytes

// CORS is off unless origins are configured.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// ControlOptions tunes the control API before NewMux builds it.
type ControlOptions struct {
	// MaxBodyBytes caps JSON request bodies; <= 0 restores the default.
	MaxBodyBytes int64
	// CORSOrigins enables CORS for browser dashboards when non-empty.
	CORSOrigins []string
}

// Configure applies o to muxes built afterwards.
func Configure(o ControlOptions) {
	maxBodyBytes = o.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	corsEnabled = len(o.CORSOrigins) > 0
	corsAllowedOrigins = append([]string(nil), o.CORSOrigins...)
	corsAllowedMethods = []string{"GET", "POST", "DELETE"}
	corsAllowedHeaders = []string{"Content-Type"}
}

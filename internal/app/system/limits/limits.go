// internal/app/system/limits/limits.go
package limits

// Request body size limits.
const (
	// MaxJSONBody caps JSON and form request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxTaskParams caps the form body a task endpoint accepts.
	MaxTaskParams = 64 << 10
)

package domain

const (
	// IDLength is the number of characters in a generated snippet id.
	IDLength = 9

	// MaxContentSize is the maximum allowed size for snippet content (512 KB).
	MaxContentSize = 512 * 1024

	// MaxRequestBodySize is the maximum allowed request body size.
	// Form encoding can triple the size of the content, plus the expiry field.
	MaxRequestBodySize = 3*MaxContentSize + 1024

	// DefaultExpiryMinutes is used when a write does not specify an expiry.
	DefaultExpiryMinutes = 24 * 60

	// MaxExpiryMinutes caps the lifetime of a snippet to one year.
	MaxExpiryMinutes = 365 * 24 * 60

	// recordExt is the file extension of a snippet record on disk.
	recordExt = ".json"
)

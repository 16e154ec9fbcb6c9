package errcode

const (
	InvalidArgument    = "invalid_argument"
	NotFound           = "not_found"
	TooLarge           = "too_large"
	UnsupportedContent = "unsupported_content"
	Unavailable        = "unavailable"
	Timeout            = "timeout"
	Upstream           = "upstream"
	TooMany            = "too_many_requests"
	Internal           = "internal"
)

package platform

import "fmt"

// ErrorKind is the normalized failure category every adapter reports.
type ErrorKind string

const (
	KindAuthExpired       ErrorKind = "auth_expired"
	KindRateLimited       ErrorKind = "rate_limited"
	KindRejected          ErrorKind = "rejected"
	KindMediaUploadFailed ErrorKind = "media_upload_failed"
	KindNotFound          ErrorKind = "not_found"
	KindTransient         ErrorKind = "transient"
	KindUnsupported       ErrorKind = "unsupported"
	KindNoAccount         ErrorKind = "no_account"
)

// Message is the user facing text for the kind.
func (k ErrorKind) Message() string {
	switch k {
	case KindAuthExpired:
		return "auth expired"
	case KindRateLimited:
		return "rate limited"
	case KindRejected:
		return "rejected"
	case KindMediaUploadFailed:
		return "media upload failed"
	case KindNotFound:
		return "not found"
	case KindTransient:
		return "transient failure"
	case KindUnsupported:
		return "platform not supported"
	case KindNoAccount:
		return "no active account"
	}
	return string(k)
}

// Retryable reports whether an automatic retry may succeed without user action.
func (k ErrorKind) Retryable() bool {
	return k == KindTransient || k == KindRateLimited
}

// Failure is an expected remote failure. Adapters return it as data, never as an error.
type Failure struct {
	Kind   ErrorKind
	Detail string
}

func failuref(kind ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return f.Kind.Message()
	}
	return f.Kind.Message() + ": " + f.Detail
}

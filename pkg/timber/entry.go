package timber

// EntryOption adds optional data to a single log call.
type EntryOption func(*entryOptions)

type entryOptions struct {
	err      error
	userInfo map[string]any
}

// WithError attaches an error. Its cause chain, or its parts if it is an
// aggregate, are folded into the event user info under the configured
// event policy.
func WithError(err error) EntryOption {
	return func(o *entryOptions) {
		o.err = err
	}
}

// WithUserInfo attaches caller data. It wins over configured default user
// info. Repeated use merges, later values winning.
func WithUserInfo(info map[string]any) EntryOption {
	return func(o *entryOptions) {
		if o.userInfo == nil {
			o.userInfo = make(map[string]any, len(info))
		}
		for k, v := range info {
			o.userInfo[k] = v
		}
	}
}

package controllers

// Options configures the contacts HTTP surface.
type Options struct {
	UploadsPath   string
	MaxUploadSize int64
	PageSize      int
	MaxPageSize   int
	OwnerHeader   string
}

func (o Options) withDefaults() Options {
	if o.UploadsPath == "" {
		o.UploadsPath = "static"
	}
	if o.MaxUploadSize <= 0 {
		o.MaxUploadSize = 10 << 20
	}
	if o.PageSize <= 0 {
		o.PageSize = 25
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = 100
	}
	return o
}

func (o Options) pageSize(requested int) int {
	if requested > o.MaxPageSize {
		return o.MaxPageSize
	}
	return requested
}

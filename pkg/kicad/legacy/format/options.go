package format

import "strings"

// Options controls how legacy files are read.
type Options struct {
	// Charset names the text encoding of the file. Empty means UTF-8, which
	// is validated line by line.
	Charset string

	// Lenient drops malformed records instead of failing the load. Warn, if
	// set, receives every dropped record.
	Lenient bool
	Warn    func(error)
}

// Option configures Options.
type Option func(*Options)

// WithCharset decodes the input from the named charset (any WHATWG label,
// e.g. "windows-1251").
func WithCharset(name string) Option {
	return func(o *Options) {
		o.Charset = name
	}
}

// Lenient makes readers skip malformed records, reporting each to warn.
func Lenient(warn func(error)) Option {
	return func(o *Options) {
		o.Lenient = true
		o.Warn = warn
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IsUTF8 reports whether the configured charset is UTF-8.
func (o *Options) IsUTF8() bool {
	switch strings.ToLower(o.Charset) {
	case "", "utf-8", "utf8":
		return true
	}
	return false
}

// Malformed decides what happens to a bad record. In strict mode it returns
// err; in lenient mode it passes err to Warn and returns nil so the caller
// can drop the record and go on.
func (o *Options) Malformed(err error) error {
	if !o.Lenient {
		return err
	}
	if o.Warn != nil {
		o.Warn(err)
	}
	return nil
}

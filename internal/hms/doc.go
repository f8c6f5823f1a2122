// Package hms resolves human-readable descriptions for the printer's health
// management (HMS) alert codes by reading the vendor wiki page each code
// links to.
//
// Lookups are lazy and bounded: descriptions are remembered in an LRU,
// concurrent lookups of the same code share one request, and a code whose
// page keeps failing is only retried a fixed number of times.
//
// # Usage
//
//	resolver, err := hms.New(hms.Config{
//	    BaseURL: "https://wiki.bambulab.com/en/x1/troubleshooting/hmscode/",
//	}, nil)
//	if err != nil {
//	    return err
//	}
//	desc, err := resolver.Describe(ctx, "HMS_0300_0100_0001_0007")
//	switch {
//	case errors.Is(err, hms.ErrNoDescription), errors.Is(err, hms.ErrAttemptsExhausted):
//	    // link to resolver.URL(code) instead
//	case err != nil:
//	    return err
//	}
package hms

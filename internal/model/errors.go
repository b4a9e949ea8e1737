package model

import "github.com/rotisserie/eris"

// Request outcomes. Every error returned by an estimate carries exactly one of
// these in its chain; classify with eris.Is.
var (
	// ErrInvalidInput covers a missing selector, an unsupported jurisdiction,
	// or an address with no isolable street name.
	ErrInvalidInput = eris.New("invalid input")

	// ErrNotFound means every query attempted returned zero parcels.
	ErrNotFound = eris.New("no parcels found")

	// ErrDatastoreUnavailable means the remote parcel service failed at the
	// transport or server level. Never retried.
	ErrDatastoreUnavailable = eris.New("parcel datastore unavailable")
)

package models

// CanonicalResult is the normalized outcome of one extraction round trip.
// Every contact field is optional: a nil field means the endpoint did not
// recognize it, which is a valid result and not a failure.
type CanonicalResult struct {
	Name        *string  `json:"name"`
	Designation *string  `json:"designation"`
	Company     *string  `json:"company"`
	Mobile      *string  `json:"mobile"`
	Email       *string  `json:"email"`
	Address     *string  `json:"address"`
	Confidence  *float64 `json:"confidence"`

	// ProcessingTime is the measured round-trip duration in seconds,
	// never taken from the response body.
	ProcessingTime float64 `json:"processing_time"`

	// Raw retains the decoded response object for diagnostics. It is not
	// serialized to clients.
	Raw map[string]interface{} `json:"-"`
}

// Empty reports whether no contact field was recognized at all.
func (r *CanonicalResult) Empty() bool {
	return r.Name == nil && r.Designation == nil && r.Company == nil &&
		r.Mobile == nil && r.Email == nil && r.Address == nil
}

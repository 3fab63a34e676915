package address

// DPV confirmation codes returned by the provider.
// USPS defines more codes than these; anything outside the known set is
// treated as not deliverable, which is the conservative choice for a
// cleaning pipeline.
const (
	// ConfirmationFull means primary and secondary numbers confirmed.
	ConfirmationFull = "Y"

	// ConfirmationPrimary means the primary number confirmed and no
	// secondary was present in the query.
	ConfirmationPrimary = "D"

	// ConfirmationSecondaryMissing means the primary number confirmed
	// but the secondary number could not be.
	ConfirmationSecondaryMissing = "S"

	// ConfirmationNone means the address could not be confirmed.
	ConfirmationNone = "N"
)

// Deliverable reports whether a validation candidate is usable for
// cleaning purposes. Y, D and S all confirm the primary number, which
// is enough to standardize on; N, an absent code, or any unrecognized
// code is not usable.
func Deliverable(c *Candidate) bool {
	if c == nil {
		return false
	}
	switch c.Confirmation {
	case ConfirmationFull, ConfirmationPrimary, ConfirmationSecondaryMissing:
		return true
	default:
		return false
	}
}

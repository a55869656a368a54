package coord

// NutationPrecision identifies which IAU 2000A nutation series produced a
// rotation. The S3 stage records this value as nutation_precision in its
// stage metadata and validation snapshot so a reader can tell which
// coefficient set was used.
type NutationPrecision int

const (
	// NutationStandard uses the 30 largest luni-solar terms (~1 arcsec
	// precision). This is the only series this package implements: the
	// full 1365-term IAU 2000A series (678 luni-solar + 687 planetary)
	// needs a coefficient table this module does not carry, and other
	// error sources in this pipeline (EOP interpolation, SGP4 itself)
	// already dominate the sub-arcsecond budget.
	NutationStandard NutationPrecision = iota
)

// String reports the label written into validation snapshots.
func (p NutationPrecision) String() string {
	return "standard"
}

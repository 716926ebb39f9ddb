// Package domain models NASA FIRMS active fire detections.
//
// # Data Source
//
// Detections originate from the NASA FIRMS area API
// (https://firms.modaps.eosdis.nasa.gov/api/area/), which serves CSV rows per
// satellite source (VIIRS_SNPP_NRT, VIIRS_NOAA20_NRT, MODIS_NRT). The fetch
// stage pulls a trailing window on a schedule, parses the CSV, and publishes
// fixed-size batches as JSON envelopes to the ingress topic. The same physical
// detection routinely reappears across polling windows, so every downstream
// write must be keyed and idempotent.
//
// # FIRMS Data Conventions
//
// Acquisition time:
//
//	acq_date is a calendar date (YYYY-MM-DD), acq_time is HHMM in 24-hour UTC.
//	Three-digit values are zero-padded: "930" → "0930". Combined they give the
//	satellite overpass time, which becomes the record timestamp.
//
// Confidence (varies by instrument):
//
//	VIIRS encodes confidence as single letters: "l", "n", "h".
//	MODIS encodes it as words ("low", "nominal", "high") or as a 0-100
//	integer. Numeric values map by threshold: <30 low, <80 nominal, else high.
//	All encodings normalize to low|nominal|high.
//
// Brightness and FRP:
//
//	brightness is the fire pixel brightness temperature in Kelvin. frp is fire
//	radiative power in megawatts and is always >= 0; some sources omit it, in
//	which case it parses to 0 (unmeasured).
//
// Day/night flag:
//
//	"D" for daytime overpasses, "N" for nighttime.
//
// # Fingerprinting
//
// Fire IDs are deterministic SHA-256 hashes of rounded latitude, rounded
// longitude, acquisition date, and acquisition time. Coordinates are rounded
// to 4 decimal digits (roughly 11 meters): enough to absorb float jitter from
// CSV round-trips without merging distinct fire pixels, while date+time keeps
// re-detections of the same pixel on different passes apart. Deterministic IDs
// make the store upsert idempotent, so at-least-once redelivery of a batch is
// safe without coordination. See [Fingerprint].
package domain

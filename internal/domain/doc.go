// Package domain models hydrometric station statistics and their mapping to
// musical note events.
//
// # Data Source
//
// Station statistics come from the Global Streamflow Indices and Metadata
// archive (GSIM), pre-aggregated into a single JSON file keyed by station id.
// Every station carries three month-indexed series (0 = January) and the
// catchment area:
//
//	{"info": {"id": "AR_0000001", ...}, "data": {"size": 1234.5,
//	 "meanMonthly": [12 values], "maxMonthly": [12 values], "minMonthly": [12 values]}}
//
// All monthly series are already normalized to [0,1] upstream. The loader
// rewrites "size" in place to {min, max, val}, where min and max are the
// dataset-wide extrema used for auto-bpm.
//
// # Mapping Conventions
//
// Each month is one beat. A loop is twelve beats and beat j of every part
// fires at musical time "0:j".
//
// Pitch bucketing partitions [0,1] into n half-open buckets (i/n, (i+1)/n]
// for a scale of n notes. A value of exactly 0 falls in no bucket and yields
// an empty note: the event still fires (and still highlights its month) but
// nothing sounds.
//
//	piano    (mean): pitch from the mean series rescaled to [0.6, 0.1]
//	                 ([0.5, 1] when inverted), velocity from a volume series
//	                 rescaled by its own extrema to [0.02, 0.15].
//	bass     (max):  velocity from an absolute [0.02, 0.4] and a relative
//	                 [-0.1, 0] component clamped to [0.02, 1]; pitch inverted.
//	hangdrum (min):  as bass with [0.02, 0.3], clamp floor 0.03, pitch [0.01, 1].
//	drumkit:         fixed pattern, velocity factor x 0.7, 20-tick hits.
//
// Months whose literal statistic is 0 are silenced (velocity 0) in the bass
// and hang-drum parts.
//
// # Auto-bpm
//
// The target tempo is a linear, inverted map of the catchment size from the
// dataset range [min, max] to [MaxAutoBPM, MinAutoBPM]: the largest
// catchment plays slowest. The result is rounded to a whole bpm so the
// equality guard on the configuration write-back is exact.
package domain

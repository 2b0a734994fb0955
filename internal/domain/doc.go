// Package domain models PM2.5 field monitoring records and the two derivations
// performed on them: START/STOP pairing and filter concentration.
//
// # Field Records
//
// A monitoring run at a site produces two observation rows: a START row when
// the sampler is switched on and a STOP row when it is collected. Both rows
// carry the same site identifier and name plus the weather conditions, the
// sampler's cumulative elapsed time (minutes) and its flow rate (L/min).
//
// Rows live in a spreadsheet-style table. Row positions are 1-based sheet
// positions: the header is row 1 and the first data row is row 2.
//
// # Numeric Cells
//
// Cells are untyped text. Numeric columns decode into [Number], a tagged union
// of Valid, Missing (blank cell) and Invalid (unparseable text, kept verbatim).
// Arithmetic over a non-Valid operand yields Missing.
//
// # Pairing
//
// [Pair] groups START and STOP rows by (site id, site name) after trimming
// whitespace. Within each group rows are numbered in table order and the n-th
// START pairs with the n-th STOP. Unmatched rows are dropped. For each pair:
//
//	elapsed diff = stop elapsed - start elapsed   (minutes)
//	average flow = (start flow + stop flow) / 2   (L/min)
//
// # Concentration
//
// [ComputeConcentration] applies the gravimetric formula once the sample
// passes the validity checks, in this order:
//
//	elapsed < 1200 min      -> "Elapsed < 1200"
//	flow <= 0.05 L/min      -> "Invalid Flow"
//	post weight < pre       -> "Post < Pre"
//	sampled volume == 0     -> "Zero Volume"
//
//	mass (mg)     = (post g - pre g) * 1000
//	volume (m³)   = flow * elapsed / 1000
//	PM2.5 (µg/m³) = mass * 1000 / volume, rounded to 2 dp
//
// For example 1500 min at 16.7 L/min with 2.1000 g before and 2.1050 g after
// gives 25.05 m³ and 5 mg, i.e. 199.6 µg/m³.
package domain

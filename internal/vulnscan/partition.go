package vulnscan

// Partition splits records by whether their version is specified, keeping
// the input order inside each bucket.
func Partition(records []EnrichedComponent) *Bucket {
	bucket := &Bucket{
		Versioned:   []EnrichedComponent{},
		Unspecified: []EnrichedComponent{},
	}

	for _, r := range records {
		if r.VersionSpecified {
			bucket.Versioned = append(bucket.Versioned, r)
		} else {
			bucket.Unspecified = append(bucket.Unspecified, r)
		}
	}

	return bucket
}

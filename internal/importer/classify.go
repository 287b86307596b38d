package importer

// Classification buckets extracted rows by whether their key already exists
// in storage.
type Classification struct {
	Inserts []Row
	Updates []Row
}

// Classify partitions rows into inserts and updates against the set of keys
// already persisted. Rows keep their extraction order within each bucket.
// The lookup is a single set-membership test per row; two rows sharing a key
// within one batch classify identically (the second does not see the first).
func Classify(rows []Row, existingKeys map[string]bool) Classification {
	var c Classification
	for _, row := range rows {
		if existingKeys[row.Key()] {
			c.Updates = append(c.Updates, row)
		} else {
			c.Inserts = append(c.Inserts, row)
		}
	}
	return c
}

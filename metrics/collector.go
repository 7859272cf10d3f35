package metrics

// Recorder receives finished generations.
type Recorder interface {
	RecordGeneration(rec GenerationRecord)
}

// Multi fans a record out to several recorders. Nil entries are skipped.
type Multi []Recorder

// RecordGeneration forwards rec to every recorder in order.
func (m Multi) RecordGeneration(rec GenerationRecord) {
	for _, r := range m {
		if r != nil {
			r.RecordGeneration(rec)
		}
	}
}

var (
	_ Recorder = (*Store)(nil)
	_ Recorder = (*Prometheus)(nil)
	_ Recorder = Multi(nil)
)

package ingest

// Aggregate combines the outcomes of the three stages into a report.
// BatchID and DurationMS are left for the caller to fill in.
//
// The status is failure when nothing was inserted, partial_success when
// something was inserted and any stage recorded a failure, and success
// otherwise. A rolled back batch counts every valid record as failed.
func Aggregate(decodes []DecodeOutcome, validations []ValidationOutcome, insertions []InsertionOutcome, mode Mode) BatchReport {
	rep := BatchReport{
		Mode:               mode,
		LinesTotal:         len(decodes),
		DecodeFailures:     []DecodeOutcome{},
		ValidationFailures: []ValidationOutcome{},
		Insertions:         []InsertionOutcome{},
	}

	for _, d := range decodes {
		if d.Failed() {
			rep.DecodeFailed++
			rep.DecodeFailures = append(rep.DecodeFailures, d)
			continue
		}
		rep.Decoded++
	}

	for _, v := range validations {
		if v.Valid() {
			rep.Valid++
			continue
		}
		rep.Invalid++
		rep.ValidationFailures = append(rep.ValidationFailures, v)
	}

	for _, ins := range insertions {
		rep.Insertions = append(rep.Insertions, ins)
		switch ins.Result {
		case Inserted:
			rep.Inserted++
		case InsertFailed:
			rep.InsertFailed++
		case BatchRolledBack:
			rep.RolledBack = true
			rep.RollbackReason = ins.Error
		}
	}

	if rep.RolledBack {
		rep.Inserted = 0
		rep.InsertFailed = rep.Valid
	}

	switch {
	case rep.Inserted == 0:
		rep.Status = StatusFailure
	case rep.DecodeFailed+rep.Invalid+rep.InsertFailed > 0:
		rep.Status = StatusPartialSuccess
	default:
		rep.Status = StatusSuccess
	}
	rep.Success = rep.Status == StatusSuccess

	return rep
}

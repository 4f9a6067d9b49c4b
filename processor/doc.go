// Package processor runs duplication jobs end to end.
//
// A job moves strictly forward through
//
//	Validating → Loading → Duplicating → Writing → Reporting → Packaging → Complete
//
// and ends in Failed or Cancelled from any earlier state. Reporting is entered
// only when the job asks for a report. Validation failures end the job before
// any progress snapshot is emitted.
//
// Progress milestones, as overall percentages:
//
//	0      validated
//	15     source files loaded
//	20-60  duplicating, once per batch
//	60-85  writing, once per periodic flush
//	85-95  packaging, once per archive entry
//	100    complete
//
// Basic usage:
//
//	p, err := processor.New(processor.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	h := p.Start(ctx, processor.Job{
//	    Input:          mdd.NewFilePair("survey.mdd"),
//	    DuplicateCount: 3,
//	    OutputDir:      "out",
//	    Sink:           progress.SinkFunc(render),
//	})
//	res := h.Wait()
package processor

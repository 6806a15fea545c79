// Package document manages the lifecycle of one source file rendered by an
// external typesetting engine.
//
// A Builder owns a source path fixed at construction. Build writes nothing
// itself: it removes stale output, runs the engine command a fixed number of
// convergence passes, captures the console output of the last pass, and
// cleans up the engine's side-files. Failures are reported as data in the
// returned Result rather than as Go errors:
//
//	b, err := document.New(document.WithCommand("pdflatex -output-directory=%dir% %file%"))
//	if err != nil {
//		return err
//	}
//	defer b.Close()
//
//	if err := b.SaveSource(tex); err != nil {
//		return err
//	}
//	res := b.Build(ctx)
//	if !res.OK {
//		log.Print(res.Errors[document.KeyEngine])
//	}
//
// Builders are not safe for concurrent use.
package document

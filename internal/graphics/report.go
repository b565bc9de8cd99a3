package graphics

// Reporter receives one diagnostic per failed command.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(err error)

// Report calls f(err).
func (f ReporterFunc) Report(err error) { f(err) }

type nopReporter struct{}

func (nopReporter) Report(error) {}

package htm

// Supported reports whether this build's backend believes hardware
// transactional memory is usable on the running CPU. It is advisory only:
// even when Supported reports true, Run may still report ok == false for
// any given attempt.
func Supported() bool { return backend.cpuSupport() }

// Run attempts to execute f as a single hardware transaction. ok reports
// whether the hardware transaction actually started and committed; when
// ok is false, f was not called and the zero value of R is returned. Run
// never retries and never blocks: it is a single best-effort attempt, and
// callers must always have a software-transaction fallback for ok == false.
func Run[R any](f func() R) (result R, ok bool) {
	code := backend.begin()
	if !code.started() {
		return result, false
	}
	result = f()
	backend.commit()
	return result, true
}

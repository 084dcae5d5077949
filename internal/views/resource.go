package views

// Phase is the lifecycle of one fetched resource inside a view.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseErrored
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Resource holds exactly one of: nothing, a pending fetch, data, or an
// error message. Data is only meaningful when Ready, or when Loading
// a refresh of data that was already shown.
type Resource[T any] struct {
	phase   Phase
	data    T
	message string
}

func Idle[T any]() Resource[T] {
	return Resource[T]{}
}

func Loading[T any](previous T) Resource[T] {
	return Resource[T]{phase: PhaseLoading, data: previous}
}

func Ready[T any](data T) Resource[T] {
	return Resource[T]{phase: PhaseReady, data: data}
}

func Errored[T any](message string) Resource[T] {
	return Resource[T]{phase: PhaseErrored, message: message}
}

func (r Resource[T]) Phase() Phase {
	return r.phase
}

func (r Resource[T]) Data() T {
	return r.data
}

func (r Resource[T]) Message() string {
	return r.message
}

func (r Resource[T]) IsLoading() bool {
	return r.phase == PhaseLoading
}

func (r Resource[T]) IsReady() bool {
	return r.phase == PhaseReady
}

func (r Resource[T]) IsErrored() bool {
	return r.phase == PhaseErrored
}

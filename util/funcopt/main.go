/*
Package funcopt implements the functional options used by the
constructors of this module.

Example:

	func WithAddr(s string) funcopt.O {
		return funcopt.F(func(i interface{}) error {
			t := i.(*T)
			t.addr = s
			return nil
		})
	}

	func New(opts ...funcopt.O) (*T, error) {
		t := &T{}
		if err := funcopt.Apply(t, opts...); err != nil {
			return nil, err
		}
		return t, nil
	}
*/
package funcopt

type (
	// O is a functional option
	O interface {
		apply(t interface{}) error
	}

	// F is the func adapter implementing O
	F func(i interface{}) error
)

func (f F) apply(t interface{}) error {
	return f(t)
}

// Apply applies the opts to t in order, stopping on the first error.
func Apply(t interface{}, opts ...O) error {
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o.apply(t); err != nil {
			return err
		}
	}
	return nil
}

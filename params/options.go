package params

// GuessKey is the option under which callers suggest a fallback or starting
// value for a parameter. Backends may consult it; the serving backend serves
// it when no committed example covers the parameter.
const GuessKey = "guess"

// Option is one keyword option attached to a declaration: the raw value as
// the caller supplied it plus the transform still pending on it.
type Option struct {
	Value     any
	Transform Transform
}

// Options maps option names to their pending values. A nil Options is
// treated as empty everywhere.
type Options map[string]Option

// Set stores a raw option value with no pending transform.
func (o Options) Set(key string, v any) {
	o[key] = Option{Value: v}
}

// Resolve applies each option's pending transform and returns the canonical
// plain-value mapping recorded in the schema and handed to backends.
func (o Options) Resolve() (map[string]any, error) {
	if len(o) == 0 {
		return nil, nil
	}
	resolved := make(map[string]any, len(o))
	for key, opt := range o {
		v := opt.Value
		if opt.Transform != nil {
			var err error
			v, err = opt.Transform.Apply(v)
			if err != nil {
				return nil, err
			}
		}
		resolved[key] = v
	}
	return resolved, nil
}

// Reparameterize returns a copy of opts where every value carries an extra
// lowering step: the existing transform runs first, then t. This is how a
// derived distribution forwards its options to the primitive it is built on.
func Reparameterize(opts Options, t Transform) Options {
	out := make(Options, len(opts))
	for key, opt := range opts {
		if opt.Transform == nil {
			opt.Transform = t
		} else {
			opt.Transform = Compose{Steps: []Transform{opt.Transform, t}}
		}
		out[key] = opt
	}
	return out
}

// Package options turns the runtime's command structs into CLI arguments,
// the same way sand's applecontainer/options package turns `container`
// flag structs into argv. The struct field order is the flag order; a
// `flag:"--name"` tag opts a field in, zero values are omitted unless the
// field is tagged `,keepZero`.
package options

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
)

// CreateContainer are the flags for `container create`.
type CreateContainer struct {
	// Init runs a minimal init process (PID 1) that reaps zombies and
	// forwards signals to the shell, so an interrupted task's children
	// don't leak.
	Init bool `flag:"--init"`
	// Interactive keeps stdin open even when not attached.
	Interactive bool `flag:"--interactive"`
	// Publish publishes a port from the container to the host, in
	// host:container form.
	Publish []string `flag:"--publish"`
	// Name uses the given name as the container ID.
	Name string `flag:"--name"`
	// User sets the in-container user.
	User string `flag:"--user"`
	// WorkDir sets the initial working directory.
	WorkDir string `flag:"--workdir"`
}

// StartContainer are the flags for `container start`.
type StartContainer struct {
	Attach      bool `flag:"--attach"`
	Interactive bool `flag:"--interactive"`
}

// StopContainer are the flags for `container stop`.
type StopContainer struct {
	Signal string `flag:"--signal"`
	Time   int    `flag:"--time"`
}

// DeleteContainer are the flags for `container delete`.
type DeleteContainer struct {
	Force bool `flag:"--force"`
}

// DeleteImage are the flags for `image delete`.
type DeleteImage struct {
	Force bool `flag:"--force"`
}

// CopyOptions are the flags shared by `container cp` in both directions.
type CopyOptions struct {
	// Archive preserves file mode, ownership, and timestamps.
	Archive bool `flag:"--archive"`
}

// ToArgs turns a flag struct into the argv slice exec.Command expects
// after the subcommand name.
func ToArgs[T any](s *T) []string {
	if s == nil {
		s = new(T)
	}
	var ret []string
	st := reflect.TypeOf(*s)
	sv := reflect.ValueOf(*s)
	if st.Kind() == reflect.Pointer {
		sv = reflect.Indirect(sv)
		st = sv.Type()
	}
	for i := range st.NumField() {
		field := st.Field(i)
		fv := sv.Field(i)
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			fvi := fv.Interface()
			ret = append(ret, ToArgs(&fvi)...)
			continue
		}
		flagTag, ok := field.Tag.Lookup("flag")
		if !ok {
			continue
		}
		flagParts := strings.Split(flagTag, ",")
		flagName := flagParts[0]
		keepZero := false
		if len(flagParts) > 1 && strings.EqualFold(flagParts[1], "keepZero") {
			keepZero = true
		}

		if !keepZero && fv.IsZero() {
			continue
		}

		fieldKind := field.Type.Kind()
		if fieldKind == reflect.Array || fieldKind == reflect.Slice {
			for i := 0; i < fv.Len(); i++ {
				ret = append(ret, flagName, fmt.Sprintf("%v", fv.Index(i)))
			}
			continue
		}

		flagValue := ""
		if fieldKind == reflect.Map {
			m := fv.Interface().(map[string]string)
			keys := slices.Sorted(maps.Keys(m))
			mapVals := make([]string, 0, len(keys))
			for _, k := range keys {
				mapVals = append(mapVals, fmt.Sprintf("%v=%v", k, m[k]))
			}
			flagValue = strings.Join(mapVals, ",")
		} else if fieldKind != reflect.Bool {
			flagValue = fmt.Sprintf("%v", fv.Interface())
		}

		ret = append(ret, flagName)
		if flagValue != "" {
			ret = append(ret, flagValue)
		}
	}
	return ret
}

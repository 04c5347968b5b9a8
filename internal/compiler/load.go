package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/subq/internal/schema"
)

// LoadDir builds the CUE files in dir into a single value.
func LoadDir(dir string) (cue.Value, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}

	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("building CUE value: %w", formatCUEError(err))
	}
	return value, nil
}

// LoadModels compiles and validates the models defined under path, which
// may be a directory or a single .cue file.
func LoadModels(path string) (*schema.Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("models path: %w", err)
	}

	var value cue.Value
	if info.IsDir() {
		value, err = LoadDir(path)
		if err != nil {
			return nil, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read models: %w", err)
		}
		value = cuecontext.New().CompileBytes(data, cue.Filename(filepath.Base(path)))
	}

	models, err := CompileModels(value)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no models found in %s", path)
	}
	if verrs := Validate(models); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}
	return schema.NewRegistry(models...), nil
}

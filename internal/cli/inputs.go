package cli

import (
	"fmt"

	"github.com/yargevad/filepathx"

	"notary-splitter/internal/logger"
)

// ExpandInputs expands each argument as a glob pattern, "**" included, and
// keeps argument order. Arguments that match nothing are dropped, as a shell
// would leave them unmatched.
func ExpandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		matches, err := filepathx.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			logger.Warn("pattern matched no files", logger.String("pattern", arg))
			continue
		}
		inputs = append(inputs, matches...)
	}
	return inputs, nil
}

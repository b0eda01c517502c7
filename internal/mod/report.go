package mod

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.followtheprocess.codes/hue"
)

// Report writes a human readable account of applying total lexemes that failed
// with errs to w.
//
// Each failure is shown as the flag the user could have typed with the offending
// path underlined, followed by a line saying how many mutations made it.
func Report(w io.Writer, total int, errs []error) {
	if len(errs) == 0 {
		return
	}

	for _, err := range errs {
		var modErr *Error
		if !errors.As(err, &modErr) {
			fmt.Fprintf(w, "%v\n", err)
			continue
		}

		fmt.Fprintf(w, "mutation #%d: %v\n", modErr.Index+1, modErr)

		margin := fmt.Sprintf("  --%s ", modErr.Lexeme.Action)
		fmt.Fprintf(w, "%s%s\n", margin, modErr.Lexeme.Value)

		// The path is always a prefix of the raw value, underline it if we have one,
		// otherwise the whole value is at fault
		width := utf8.RuneCountInString(modErr.Path)
		if width == 0 {
			width = max(utf8.RuneCountInString(modErr.Lexeme.Value), 1)
		}

		hue.Red.Fprintf(w, "%s%s\n", strings.Repeat(" ", len(margin)), strings.Repeat("─", width))
	}

	applied := max(total-len(errs), 0)
	fmt.Fprintf(w, "%d of %d mutations applied\n", applied, total)
}

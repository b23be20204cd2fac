package paintshop

import (
	"fmt"
	"io"
	"strings"
)

// maxListedEnsembles caps how many demand entries WriteText prints inline.
const maxListedEnsembles = 10

// WriteText prints the report in the plain layout of the command line tool.
func (r Report) WriteText(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Problem\n-------\n")
	fmt.Fprintf(&b, "Number of cars: %d\n", r.NumCars)
	fmt.Fprintf(&b, "Number of car ensembles: %d\n", r.NumEnsembles)
	b.WriteString("Number of cars to be painted black:\n")
	if len(r.Demand) <= maxListedEnsembles {
		parts := make([]string, 0, len(r.Demand))
		for _, c := range r.Demand.Cars() {
			parts = append(parts, fmt.Sprintf("%s: %d", c, r.Demand[c]))
		}
		fmt.Fprintf(&b, "{%s}\n", strings.Join(parts, ", "))
	} else {
		b.WriteString("The list of values is too long\n")
	}
	for _, wmsg := range r.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", wmsg)
	}

	b.WriteString("\nSolutions\n---------\n")
	if len(r.Solutions) == 0 {
		msg := r.Message
		if msg == "" {
			msg = NoFeasibleMessage
		}
		b.WriteString(msg + "\n")
	}
	for _, s := range r.Solutions {
		fmt.Fprintf(&b, "%d\n", s.Rank)
		fmt.Fprintf(&b, "Objective: %8.2f, Number of switches: %8.2f\n", s.Objective, s.Switches)
		fmt.Fprintf(&b, "Colors: %s\n", s.Colors)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

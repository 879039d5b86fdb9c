// Package qasmscript implements a minimal line-oriented gate-sequence
// script format ("QASM-lite") and a runner that drives a circuit.QCircuit
// from it: one instruction per line, whitespace-separated fields, '#' to
// end of line is a comment.
//
// Supported instructions: H, X, Y, Z, ID <site>; P <site> <theta>; U3
// <site> <theta> <phi> <lambda>; CNOT, CY, CZ, SWAP <site1> <site2>; CP
// <site1> <site2> <theta>; CU3 <site1> <site2> <theta> <phi> <lambda>;
// MEASURE <site>; RESET <site>.
package qasmscript

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ttnsim/ttnsim/circuit"
	"github.com/ttnsim/ttnsim/gate"
)

// Instruction is a single parsed script line.
type Instruction struct {
	Op                 string
	Site1, Site2       int
	Theta, Phi, Lambda float64
}

// Script is a parsed sequence of Instructions, ready to Run against a
// QCircuit.
type Script struct {
	Instructions []Instruction
}

// Parse reads a script from r.
func Parse(r io.Reader) (*Script, error) {
	sc := bufio.NewScanner(r)
	var script Script
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		instr, err := parseInstruction(fields)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("qasmscript: line %d", lineNo))
		}
		script.Instructions = append(script.Instructions, instr)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return &script, nil
}

func parseInstruction(fields []string) (Instruction, error) {
	op := strings.ToUpper(fields[0])
	args := fields[1:]
	switch op {
	case "H", "X", "Y", "Z", "ID", "MEASURE", "RESET":
		site, err := parseInt(args, 0, op)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: op, Site1: site}, nil
	case "P":
		site, err := parseInt(args, 0, op)
		if err != nil {
			return Instruction{}, err
		}
		theta, err := parseFloat(args, 1, op)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: op, Site1: site, Theta: theta}, nil
	case "U3":
		site, err := parseInt(args, 0, op)
		if err != nil {
			return Instruction{}, err
		}
		theta, err := parseFloat(args, 1, op)
		if err != nil {
			return Instruction{}, err
		}
		phi, err := parseFloat(args, 2, op)
		if err != nil {
			return Instruction{}, err
		}
		lambda, err := parseFloat(args, 3, op)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: op, Site1: site, Theta: theta, Phi: phi, Lambda: lambda}, nil
	case "CNOT", "CY", "CZ", "SWAP":
		s1, err := parseInt(args, 0, op)
		if err != nil {
			return Instruction{}, err
		}
		s2, err := parseInt(args, 1, op)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: op, Site1: s1, Site2: s2}, nil
	case "CP":
		s1, err := parseInt(args, 0, op)
		if err != nil {
			return Instruction{}, err
		}
		s2, err := parseInt(args, 1, op)
		if err != nil {
			return Instruction{}, err
		}
		theta, err := parseFloat(args, 2, op)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: op, Site1: s1, Site2: s2, Theta: theta}, nil
	case "CU3":
		s1, err := parseInt(args, 0, op)
		if err != nil {
			return Instruction{}, err
		}
		s2, err := parseInt(args, 1, op)
		if err != nil {
			return Instruction{}, err
		}
		theta, err := parseFloat(args, 2, op)
		if err != nil {
			return Instruction{}, err
		}
		phi, err := parseFloat(args, 3, op)
		if err != nil {
			return Instruction{}, err
		}
		lambda, err := parseFloat(args, 4, op)
		if err != nil {
			return Instruction{}, err
		}
		return Instruction{Op: op, Site1: s1, Site2: s2, Theta: theta, Phi: phi, Lambda: lambda}, nil
	default:
		return Instruction{}, errors.Errorf("qasmscript: unknown operation %q", fields[0])
	}
}

func parseInt(args []string, i int, op string) (int, error) {
	if i >= len(args) {
		return 0, errors.Errorf("qasmscript: %s: missing argument %d", op, i)
	}
	v, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, errors.Wrap(err, fmt.Sprintf("qasmscript: %s: argument %d", op, i))
	}
	return v, nil
}

func parseFloat(args []string, i int, op string) (float64, error) {
	if i >= len(args) {
		return 0, errors.Errorf("qasmscript: %s: missing argument %d", op, i)
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, errors.Wrap(err, fmt.Sprintf("qasmscript: %s: argument %d", op, i))
	}
	return v, nil
}

// Run executes every instruction against c in order, returning the
// sequence of measurement outcomes produced by MEASURE instructions.
func (s *Script) Run(c *circuit.QCircuit) ([]int, error) {
	var outcomes []int
	for i, instr := range s.Instructions {
		x, isMeasurement, err := instr.apply(c)
		if err != nil {
			return outcomes, errors.Wrap(err, fmt.Sprintf("qasmscript: instruction %d (%s)", i, instr.Op))
		}
		if isMeasurement {
			outcomes = append(outcomes, x)
		}
	}
	return outcomes, nil
}

func (instr Instruction) apply(c *circuit.QCircuit) (outcome int, isMeasurement bool, err error) {
	switch instr.Op {
	case "H":
		err = c.ApplyOneSite(gate.OneSite{Kind: gate.H, Site: instr.Site1})
	case "X":
		err = c.ApplyOneSite(gate.OneSite{Kind: gate.X, Site: instr.Site1})
	case "Y":
		err = c.ApplyOneSite(gate.OneSite{Kind: gate.Y, Site: instr.Site1})
	case "Z":
		err = c.ApplyOneSite(gate.OneSite{Kind: gate.Z, Site: instr.Site1})
	case "ID":
		err = c.ApplyOneSite(gate.OneSite{Kind: gate.Id, Site: instr.Site1})
	case "P":
		err = c.ApplyOneSite(gate.OneSite{Kind: gate.P, Site: instr.Site1, Theta: instr.Theta})
	case "U3":
		err = c.ApplyOneSite(gate.OneSite{Kind: gate.U3, Site: instr.Site1, Theta: instr.Theta, Phi: instr.Phi, Lambda: instr.Lambda})
	case "CNOT":
		err = c.ApplyTwoSite(gate.TwoSite{Kind: gate.CNOT, Site1: instr.Site1, Site2: instr.Site2})
	case "CY":
		err = c.ApplyTwoSite(gate.TwoSite{Kind: gate.CY, Site1: instr.Site1, Site2: instr.Site2})
	case "CZ":
		err = c.ApplyTwoSite(gate.TwoSite{Kind: gate.CZ, Site1: instr.Site1, Site2: instr.Site2})
	case "CP":
		err = c.ApplyTwoSite(gate.TwoSite{Kind: gate.CP, Site1: instr.Site1, Site2: instr.Site2, Theta: instr.Theta})
	case "CU3":
		err = c.ApplyTwoSite(gate.TwoSite{Kind: gate.CU3, Site1: instr.Site1, Site2: instr.Site2, Theta: instr.Theta, Phi: instr.Phi, Lambda: instr.Lambda})
	case "SWAP":
		err = c.ApplyTwoSite(gate.TwoSite{Kind: gate.Swap, Site1: instr.Site1, Site2: instr.Site2})
	case "MEASURE":
		var x int
		x, err = c.ObserveQubit(instr.Site1)
		return x, true, err
	case "RESET":
		err = c.ResetQubit(instr.Site1)
	default:
		err = errors.Errorf("qasmscript: unhandled operation %q", instr.Op)
	}
	return 0, false, err
}

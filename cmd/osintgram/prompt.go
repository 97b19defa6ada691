package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errInvalidInput = errors.New("invalid input")

// prompter asks the user questions on the interactive terminal
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

// line prints question and returns the trimmed answer. io.EOF is returned
// only when nothing at all was typed.
func (p *prompter) line(question string) (string, error) {
	fmt.Fprint(p.out, question)
	input, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// confirm asks a y/N question. Empty input declines.
func (p *prompter) confirm(question string) (bool, error) {
	answer, err := p.line(question + " [y/N]: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// askLimit asks whether to collect every item or only some. It returns 0 for
// "all" and ok=false when the user gave up with an empty answer. Invalid
// answers are reported as errInvalidInput; the caller abandons the operation.
func (p *prompter) askLimit(noun string) (limit int, ok bool, err error) {
	answer, err := p.line(fmt.Sprintf("Do you want to get all %s? y/n: ", noun))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		return 0, false, err
	}

	switch strings.ToLower(answer) {
	case "":
		return 0, false, nil
	case "y", "yes":
		return 0, true, nil
	case "n", "no":
	default:
		return 0, false, fmt.Errorf("%w: please enter y/n", errInvalidInput)
	}

	answer, err = p.line(fmt.Sprintf("How many %s do you want to get? ", noun))
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, false, err
	}
	n, convErr := strconv.Atoi(answer)
	if convErr != nil || n <= 0 {
		return 0, false, fmt.Errorf("%w: please enter a valid positive integer", errInvalidInput)
	}
	return n, true, nil
}

package circuit

import "fmt"

// pairInputs are the single-qubit inputs of the four entangled pair kinds,
// indexed by kind: {qubit 0, qubit 1}.
var pairInputs = [4][2]Amplitudes{
	{{1, 0}, {1, 0}}, // |00> + |11>
	{{0, 1}, {0, 1}}, // -|01> + |10>
	{{0, 1}, {1, 0}}, // |00> - |11>
	{{1, 0}, {0, 1}}, // |01> + |10>
}

// EntangledPair builds the two-qubit Bell state selected by kind (0 to 3):
// each qubit is initialized to a basis state, then H on q[0] and CX from
// q[0] to q[1] entangle them. With measure set, all qubits are measured into
// the meas register.
func EntangledPair(kind int, measure bool) (*Circuit, error) {
	if kind < 0 || kind >= len(pairInputs) {
		return nil, fmt.Errorf("entangled pair kind %d: want 0 to %d", kind, len(pairInputs)-1)
	}
	in := pairInputs[kind]
	return EntangledPairFrom(in[0], in[1], measure)
}

// EntangledPairFrom is EntangledPair with caller supplied single-qubit inputs.
func EntangledPairFrom(q0, q1 InitParams, measure bool) (*Circuit, error) {
	c, err := New(2)
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(0, q0, 0); err != nil {
		return nil, fmt.Errorf("q[0]: %w", err)
	}
	if err := c.Initialize(1, q1, 1); err != nil {
		return nil, fmt.Errorf("q[1]: %w", err)
	}
	c.AddGate("H", 0, 2)
	c.AddGate("CX", 1, 3, 0)
	if measure {
		if _, err := c.MeasureAll(4); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RandomBit builds a one-qubit circuit whose measurement is a fair coin.
func RandomBit(measure bool) (*Circuit, error) {
	c, err := New(1)
	if err != nil {
		return nil, err
	}
	if err := c.Initialize(0, Amplitudes{1, 0}, 0); err != nil {
		return nil, err
	}
	c.AddGate("H", 0, 1)
	if measure {
		if _, err := c.MeasureAll(2); err != nil {
			return nil, err
		}
	}
	return c, nil
}

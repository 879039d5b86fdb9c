package builder

import "testing"

func TestMakeChain(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		size      int
		periodic  bool
		wantLinks int
		wantErr   bool
	}{
		{name: "open chain of 5", size: 5, periodic: false, wantLinks: 4},
		{name: "ring of 5", size: 5, periodic: true, wantLinks: 5},
		{name: "single site open", size: 1, periodic: false, wantLinks: 0},
		{name: "single site periodic has no self loop", size: 1, periodic: true, wantLinks: 0},
		{name: "zero size errors", size: 0, wantErr: true},
		{name: "negative size errors", size: -1, wantErr: true},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			top, err := MakeChain(test.size, test.periodic)
			if test.wantErr {
				if err == nil {
					t.Fatalf("MakeChain(%d,%v): want error, got nil", test.size, test.periodic)
				}
				return
			}
			if err != nil {
				t.Fatalf("MakeChain(%d,%v): %+v", test.size, test.periodic, err)
			}
			if top.NumLinks() != test.wantLinks {
				t.Fatalf("NumLinks(): got %d, want %d", top.NumLinks(), test.wantLinks)
			}
			if !top.IsConnected() {
				t.Fatalf("chain topology should be connected")
			}
		})
	}
}

func TestMakeAllToAll(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		size      int
		wantLinks int
		wantErr   bool
	}{
		{name: "4 sites", size: 4, wantLinks: 6},
		{name: "single site", size: 1, wantLinks: 0},
		{name: "zero size errors", size: 0, wantErr: true},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			top, err := MakeAllToAll(test.size)
			if test.wantErr {
				if err == nil {
					t.Fatalf("MakeAllToAll(%d): want error, got nil", test.size)
				}
				return
			}
			if err != nil {
				t.Fatalf("MakeAllToAll(%d): %+v", test.size, err)
			}
			if top.NumLinks() != test.wantLinks {
				t.Fatalf("NumLinks(): got %d, want %d", top.NumLinks(), test.wantLinks)
			}
			for i := 0; i < test.size; i++ {
				for j := i + 1; j < test.size; j++ {
					if !top.HasLink(i, j) {
						t.Fatalf("expected link between %d and %d", i, j)
					}
				}
			}
		})
	}
}

func TestMakeIBMQTopology(t *testing.T) {
	t.Parallel()
	top, err := MakeIBMQTopology()
	if err != nil {
		t.Fatalf("MakeIBMQTopology(): %+v", err)
	}
	if top.NumBits() != 53 {
		t.Fatalf("NumBits(): got %d, want 53", top.NumBits())
	}
	if !top.IsConnected() {
		t.Fatalf("IBMQ topology should be connected")
	}
	if !top.HasLink(0, 1) {
		t.Fatalf("expected link between 0 and 1")
	}
	if !top.HasLink(50, 52) {
		t.Fatalf("expected link between 50 and 52")
	}
}

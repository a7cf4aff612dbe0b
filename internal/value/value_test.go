package value

import "testing"

func TestTruthiness(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero int", Int(0), false},
		{"zero float", Float(0), false},
		{"empty string", String(""), false},
		{"empty array", Array(nil), false},
		{"nonzero int", Int(1), true},
		{"nonempty string", String("x"), true},
		{"empty object truthy", Object(nil), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.v.IsTruthy(); got != tc.want {
				t.Errorf("IsTruthy(%v) = %v, want %v", tc.v, got, tc.want)
			}
		})
	}
}

func TestToBoolIdempotent(t *testing.T) {
	vs := []Value{Null(), Bool(true), Int(0), Int(5), String(""), String("x")}
	for _, v := range vs {
		once := v.ToBool()
		twice := once.ToBool()
		if !once.StrictEquals(twice) {
			t.Errorf("to_bool not idempotent for %v", v)
		}
	}
}

func TestStrictImpliesLoose(t *testing.T) {
	pairs := [][2]Value{
		{Int(1), Int(1)},
		{String("a"), String("a")},
		{Array([]Value{Int(1)}), Array([]Value{Int(1)})},
	}
	for _, p := range pairs {
		if !p[0].StrictEquals(p[1]) {
			t.Fatalf("expected strict equal: %v %v", p[0], p[1])
		}
		if !p[0].LooseEquals(p[1]) {
			t.Errorf("strict_equals(x,y) did not imply loose_equals(x,y) for %v %v", p[0], p[1])
		}
	}
}

func TestLooseEqualityCrossType(t *testing.T) {
	cases := []struct {
		a, b Value
		want bool
	}{
		{Int(1), Float(1.0), true},
		{String("5"), Int(5), true},
		{Null(), Null(), true},
		{Null(), Int(0), false},
		{Bool(true), Int(1), false},
	}
	for _, tc := range cases {
		if got := tc.a.LooseEquals(tc.b); got != tc.want {
			t.Errorf("LooseEquals(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestCompareOrderingExclusive(t *testing.T) {
	a, b := Int(5), Int(3)
	ord, ok := a.Compare(b)
	if !ok {
		t.Fatal("expected comparable")
	}
	gt := ord == Greater
	ordLE, _ := a.Compare(b)
	le := ordLE != Greater
	if gt == le {
		t.Errorf("(a>b) xor (a<=b) must hold")
	}
}

func TestDivisionByZero(t *testing.T) {
	if _, err := Div(Int(1), Int(0)); err == nil {
		t.Error("expected division by zero error")
	}
	if _, err := Mod(Int(1), Int(0)); err == nil {
		t.Error("expected modulo by zero error")
	}
}

func TestArithmeticIdentities(t *testing.T) {
	x := Int(7)
	if got := Add(x, Int(0)); got.ToNumber() != x.ToNumber() {
		t.Errorf("x+0 != x: %v", got)
	}
	if got := Mul(x, Int(1)); got.ToNumber() != x.ToNumber() {
		t.Errorf("x*1 != x: %v", got)
	}
	if got := Add(Int(2), Int(3)); got.ToNumber() != Add(Int(3), Int(2)).ToNumber() {
		t.Errorf("+ not commutative: %v", got)
	}
}

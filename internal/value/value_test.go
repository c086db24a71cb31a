package value

import "testing"

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want bool
	}{
		{"null", Null(), false},
		{"omit", Omit(), false},
		{"false", Bool(false), false},
		{"true", Bool(true), true},
		{"zero int", Int(0), false},
		{"nonzero int", Int(1), true},
		{"zero float", Float(0), false},
		{"empty string", String(""), false},
		{"nonempty string", String("x"), true},
		{"empty seq", Seq(), false},
		{"nonempty seq", Seq(Int(1)), true},
		{"empty map", NewMap(), false},
		{"nonempty map", Map(KV{"a", Int(1)}), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.Truthy(); got != c.want {
				t.Errorf("Truthy() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestOmitNotEqualNull(t *testing.T) {
	if Omit().Equal(Null()) {
		t.Fatal("Omit must not equal Null: they are distinct variants")
	}
	if Null().Equal(Omit()) {
		t.Fatal("Null must not equal Omit: they are distinct variants")
	}
}

func TestMapOrderPreserved(t *testing.T) {
	m := Map(KV{"z", Int(1)}, KV{"a", Int(2)}, KV{"m", Int(3)})
	keys := m.MapKeys()
	want := []string{"z", "a", "m"}
	if len(keys) != len(want) {
		t.Fatalf("MapKeys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("MapKeys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestMapSetImmutable(t *testing.T) {
	base := Map(KV{"a", Int(1)})
	derived := base.MapSet("b", Int(2))

	if _, ok := base.MapGet("b"); ok {
		t.Fatal("MapSet must not mutate the receiver")
	}
	if v, ok := derived.MapGet("a"); !ok || v.Int() != 1 {
		t.Fatal("MapSet must preserve existing keys")
	}
	if v, ok := derived.MapGet("b"); !ok || v.Int() != 2 {
		t.Fatal("MapSet must add the new key")
	}
}

func TestEqualSeqAndMap(t *testing.T) {
	a := Seq(Int(1), String("x"), Map(KV{"k", Bool(true)}))
	b := Seq(Int(1), String("x"), Map(KV{"k", Bool(true)}))
	if !a.Equal(b) {
		t.Fatal("structurally identical seq/map values must be Equal")
	}
	c := Seq(Int(1), String("x"), Map(KV{"k", Bool(false)}))
	if a.Equal(c) {
		t.Fatal("structurally different values must not be Equal")
	}
}

func TestLen(t *testing.T) {
	if Seq(Int(1), Int(2)).Len() != 2 {
		t.Fatal("Len() of a 2-element seq must be 2")
	}
	if String("abc").Len() != 3 {
		t.Fatal("Len() of a 3-byte string must be 3")
	}
	if Int(5).Len() != 0 {
		t.Fatal("Len() of a scalar must be 0")
	}
}

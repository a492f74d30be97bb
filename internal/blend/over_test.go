package blend

import "testing"

func TestOver(t *testing.T) {
	tests := []struct {
		name           string
		sr, sg, sb     uint8
		sa             float64
		dr, dg, db, da uint8
		want           [4]uint8
	}{
		{"opaque source wins", 10, 20, 30, 1, 200, 200, 200, 255, [4]uint8{10, 20, 30, 255}},
		{"alpha above one", 10, 20, 30, 3, 0, 0, 0, 0, [4]uint8{10, 20, 30, 255}},
		{"transparent source keeps destination", 10, 20, 30, 0, 1, 2, 3, 4, [4]uint8{1, 2, 3, 4}},
		{"negative alpha keeps destination", 10, 20, 30, -1, 1, 2, 3, 4, [4]uint8{1, 2, 3, 4}},
		{"half over opaque", 255, 0, 0, 0.5, 0, 0, 255, 255, [4]uint8{128, 0, 128, 255}},
		{"half over transparent keeps color", 255, 100, 0, 0.5, 9, 9, 9, 0, [4]uint8{255, 100, 0, 128}},
		{"translucent over translucent", 255, 0, 0, 0.6, 0, 0, 255, 100, [4]uint8{202, 0, 53, 193}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b, a := Over(tt.sr, tt.sg, tt.sb, tt.sa, tt.dr, tt.dg, tt.db, tt.da)
			if got := [4]uint8{r, g, b, a}; got != tt.want {
				t.Errorf("Over() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOverOpaqueDestinationStaysOpaque(t *testing.T) {
	for a := 0; a <= 255; a++ {
		_, _, _, out := Over(50, 60, 70, float64(a)/255, 1, 2, 3, 255)
		if out != 255 {
			t.Fatalf("alpha %d over opaque = %d, want 255", a, out)
		}
	}
}

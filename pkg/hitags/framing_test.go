package hitags

import "testing"

func TestSelectModulationTable(t *testing.T) {
	cases := []struct {
		name        string
		mode        Mode
		readerToTag bool
		acSeq       bool
		want        FrameModulation
	}{
		{"std reader to tag", ModeSTD, true, false, FrameModulation{1, MC4K}},
		{"std tag ac reply", ModeSTD, false, true, FrameModulation{1, AC2K}},
		{"std tag non-ac reply", ModeSTD, false, false, FrameModulation{1, MC4K}},
		{"adv1 reader to tag", ModeADV1, true, false, FrameModulation{6, MC4K}},
		{"adv1 tag ac reply", ModeADV1, false, true, FrameModulation{3, AC2K}},
		{"adv2 tag non-ac reply", ModeADV2, false, false, FrameModulation{6, MC4K}},
		{"fadv reader to tag", ModeFADV, true, false, FrameModulation{6, MC8K}},
		{"fadv tag ac reply", ModeFADV, false, true, FrameModulation{3, AC4K}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectModulation(tc.mode, tc.readerToTag, tc.acSeq)
			if got != tc.want {
				t.Fatalf("SelectModulation(%v, %v, %v) = %+v, want %+v", tc.mode, tc.readerToTag, tc.acSeq, got, tc.want)
			}
		})
	}
}

func TestIsSTD(t *testing.T) {
	if !IsSTD(ModeSTD) {
		t.Fatalf("IsSTD(ModeSTD) = false, want true")
	}
	for _, m := range []Mode{ModeADV1, ModeADV2, ModeFADV} {
		if IsSTD(m) {
			t.Fatalf("IsSTD(%v) = true, want false", m)
		}
	}
}

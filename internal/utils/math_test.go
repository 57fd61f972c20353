package utils

import (
	"reflect"
	"testing"

	dg "github.com/bwmarrin/discordgo"
)

func TestSum(t *testing.T) {
	tests := []struct {
		name   string
		values []int
		want   int
	}{
		{"empty", nil, 0},
		{"single", []int{7}, 7},
		{"mixed", []int{3, 5, 0}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sum(tt.values); got != tt.want {
				t.Errorf("Sum(%v) = %d, want %d", tt.values, got, tt.want)
			}
		})
	}
}

func TestRange(t *testing.T) {
	got := Range(3, 4)
	want := []int{3, 4, 5, 6}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Range(3, 4) = %v, want %v", got, want)
	}

	if got := Range(0, 0); len(got) != 0 {
		t.Errorf("Range(0, 0) = %v, want empty", got)
	}
}

func TestMissingPermissions(t *testing.T) {
	required := int64(dg.PermissionSendMessages | dg.PermissionEmbedLinks)

	got := MissingPermissions(required, dg.PermissionSendMessages)
	want := []string{"Embed Links"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MissingPermissions = %v, want %v", got, want)
	}

	if got := MissingPermissions(required, required); got != nil {
		t.Errorf("MissingPermissions with all held = %v, want nil", got)
	}
}

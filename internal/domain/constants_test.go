package domain

import "testing"

func TestMapProviderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want PaymentStatus
	}{
		{in: "ATIVA", want: StatusActive},
		{in: "CONCLUIDA", want: StatusConcluded},
		{in: "concluida", want: StatusConcluded},
		{in: "REMOVIDA_PELO_USUARIO_RECEBEDOR", want: StatusRemovedByUser},
		{in: "REMOVIDA_PELO_PSP", want: StatusRemovedByPSP},
		{in: "EXPIRADA", want: StatusActive},
		{in: "", want: StatusActive},
	}

	for _, tt := range tests {
		if got := MapProviderStatus(tt.in); got != tt.want {
			t.Fatalf("MapProviderStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

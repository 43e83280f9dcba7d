package domain

import "strings"

// PaymentStatus is the canonical charge status stored locally.
type PaymentStatus string

const (
	StatusActive        PaymentStatus = "ACTIVE"
	StatusConcluded     PaymentStatus = "CONCLUDED"
	StatusRemovedByUser PaymentStatus = "REMOVED_BY_USER"
	StatusRemovedByPSP  PaymentStatus = "REMOVED_BY_PSP"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusConcluded, StatusRemovedByUser, StatusRemovedByPSP:
		return true
	}
	return false
}

// Status vocabulary of the BACEN Pix API.
const (
	PSPStatusAtiva                        = "ATIVA"
	PSPStatusConcluida                    = "CONCLUIDA"
	PSPStatusRemovidaPeloUsuarioRecebedor = "REMOVIDA_PELO_USUARIO_RECEBEDOR"
	PSPStatusRemovidaPeloPSP              = "REMOVIDA_PELO_PSP"
)

// MapProviderStatus translates a PSP status to the canonical one. Anything
// unrecognised maps to StatusActive.
func MapProviderStatus(s string) PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case PSPStatusConcluida:
		return StatusConcluded
	case PSPStatusRemovidaPeloUsuarioRecebedor:
		return StatusRemovedByUser
	case PSPStatusRemovidaPeloPSP:
		return StatusRemovedByPSP
	default:
		return StatusActive
	}
}

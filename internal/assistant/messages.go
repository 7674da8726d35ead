package assistant

import "fmt"

// Action log prefixes. The UI styles entries by these.
const (
	PrefixSystem    = "Sistema:"
	PrefixAssistant = "Assistente:"
	PrefixUser      = "Você:"
	PrefixError     = "Erro:"
	PrefixConfig    = "Config:"
)

const (
	msgPermissionDenied = PrefixError + " Permissão para microfone negada"
	msgUnavailable      = PrefixError + " Reconhecimento de voz não suportado neste ambiente"
	msgEmptyCommand     = PrefixAssistant + " Comando vazio. O que deseja?"
	msgRestartFailed    = PrefixError + " Não foi possível reiniciar o reconhecimento"
)

func msgListening(wake string) string {
	return fmt.Sprintf("%s Ouvindo... Diga \"%s\" para ativar", PrefixSystem, wake)
}

func msgDetected(wake string) string {
	return fmt.Sprintf("%s Palavra-chave \"%s\" detectada!", PrefixSystem, wake)
}

func msgUserSaid(command string) string {
	return PrefixUser + " " + command
}

func msgWakeWordSaved(wake string) string {
	return fmt.Sprintf("%s Nova palavra-chave definida: \"%s\"", PrefixConfig, wake)
}

func msgEngineError(reason string) string {
	return fmt.Sprintf("%s Reconhecimento interrompido (%s)", PrefixError, reason)
}

package chat

import (
	"errors"

	"fieldreport/agent"
	"fieldreport/model"
	"fieldreport/provider"
)

// FormSubmissionPrefix opens the user turn synthesized from a submitted
// form. Free text is only taken as a form submission when it starts with
// this sentence and the rest is a JSON object.
const FormSubmissionPrefix = "He completado el formulario con los siguientes datos:"

func deleteRefusal() model.AssistantResponse {
	return model.AssistantResponse{
		DisplayText: "No puedo eliminar registros. Por seguridad, las eliminaciones no están permitidas desde el asistente.",
		StatusDisplay: &model.StatusDisplay{
			Icon:    model.IconWarning,
			Title:   "Operación no permitida",
			Message: "Las eliminaciones deben hacerse desde el sistema de gestión.",
		},
	}
}

func loopCapResponse() model.AssistantResponse {
	return model.AssistantResponse{
		DisplayText: "Lo siento, no pude completar la solicitud: el asistente necesitó demasiados pasos.",
		StatusDisplay: &model.StatusDisplay{
			Icon:    model.IconWarning,
			Title:   "Solicitud incompleta",
			Message: "Prueba a reformular la pregunta o divídela en pasos más pequeños.",
		},
	}
}

func processingResponse() model.AssistantResponse {
	return model.AssistantResponse{
		DisplayText: "Procesando el formulario...",
		StatusDisplay: &model.StatusDisplay{
			Icon:    model.IconInfo,
			Title:   "Procesando",
			Message: "Enviando los datos al agente.",
		},
	}
}

// errorResponse maps a failed turn onto the fixed message shown to the user.
func errorResponse(err error) model.AssistantResponse {
	title := "Error"
	var text string

	switch {
	case errors.Is(err, agent.ErrAgentUnavailable):
		title = "Agente no disponible"
		text = "Lo siento, el agente no respondió tras varios intentos. Inténtalo de nuevo en unos minutos."
	case errors.Is(err, agent.ErrAsyncWebhook):
		title = "Webhook mal configurado"
		text = "El webhook del agente respondió \"Accepted\" sin datos. Configúralo para que responda cuando termine el flujo."
	case errors.Is(err, provider.ErrNotConfigured), errors.Is(err, agent.ErrAgentNotConfigured):
		title = "Servicio no configurado"
		text = "El servicio no está configurado. Revisa la clave de API y la URL del agente en la configuración."
	case errors.Is(err, provider.ErrMalformedPayload), errors.Is(err, agent.ErrMalformedResponse):
		title = "Respuesta inválida"
		text = "El asistente devolvió una respuesta con un formato que no se pudo procesar."
	default:
		text = "Ha ocurrido un error al procesar tu solicitud: " + err.Error()
	}

	return model.AssistantResponse{
		DisplayText: text,
		StatusDisplay: &model.StatusDisplay{
			Icon:    model.IconError,
			Title:   title,
			Message: text,
		},
	}
}

package apierr

import "github.com/alnah/go-eventadmin/internal/lang"

// Fixed user-facing texts, independent of backend wording.
var messages = map[string]map[Class]string{
	lang.English: {
		ClassAuth:         "Your session has expired. Please sign in again.",
		ClassForbidden:    "You do not have permission to perform this action.",
		ClassNotFound:     "The requested resource was not found.",
		ClassServer:       "A server error occurred. Please try again later.",
		ClassNetwork:      "Unable to reach the server. Check your connection.",
		ClassRequestSetup: "The request could not be prepared.",
		ClassUnknown:      "An unexpected error occurred.",
	},
	lang.French: {
		ClassAuth:         "Votre session a expiré. Veuillez vous reconnecter.",
		ClassForbidden:    "Vous n'avez pas la permission d'effectuer cette action.",
		ClassNotFound:     "La ressource demandée est introuvable.",
		ClassServer:       "Erreur du serveur. Veuillez réessayer plus tard.",
		ClassNetwork:      "Impossible de joindre le serveur. Vérifiez votre connexion.",
		ClassRequestSetup: "La requête n'a pas pu être préparée.",
		ClassUnknown:      "Une erreur inattendue est survenue.",
	},
}

// Message returns the fixed text for class c in the given language.
// Unsupported languages fall back to lang.Default.
func Message(language string, c Class) string {
	texts := messages[lang.Resolve(language)]
	if msg, ok := texts[c]; ok {
		return msg
	}
	return texts[ClassUnknown]
}

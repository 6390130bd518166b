package chat

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/sisarm/sisarm-search/internal/license"
	"github.com/sisarm/sisarm-search/internal/observability/metrics"
	"github.com/sisarm/sisarm-search/pkg/logging"
)

// LicenseChecker is the slice of the license service the assistant needs.
type LicenseChecker interface {
	StatusFor(ctx context.Context, userID string) (*license.Status, error)
}

// Result is one assistant turn: the reply body, suggested follow-ups for
// the widget's quick buttons, and an optional action directive.
type Result struct {
	Reply       string   `json:"reply"`
	Suggestions []string `json:"suggestions"`
	Action      *Action  `json:"action,omitempty"`
}

// Controller drives a conversation turn: it consumes pending session
// actions, walks the topic branches in fixed precedence order and falls
// back to the rule matcher.
type Controller struct {
	matcher  *Matcher
	sessions SessionStore
	licenses LicenseChecker
	upstream IntentClient
	metrics  *metrics.AppMetrics
	logger   *logging.Logger

	supportPath string
	waNumber    string
	waText      string
}

// Options tunes the support hand-off targets.
type Options struct {
	SupportPath    string
	WhatsAppNumber string
	WhatsAppText   string
}

func NewController(matcher *Matcher, sessions SessionStore, licenses LicenseChecker, upstream IntentClient, m *metrics.AppMetrics, logger *logging.Logger, opts Options) *Controller {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.SupportPath == "" {
		opts.SupportPath = "/soporte/"
	}
	if opts.WhatsAppNumber == "" {
		opts.WhatsAppNumber = "59177682918"
	}
	if opts.WhatsAppText == "" {
		opts.WhatsAppText = "Hola, necesito ayuda con SISARM Search."
	}
	return &Controller{
		matcher:     matcher,
		sessions:    sessions,
		licenses:    licenses,
		upstream:    upstream,
		metrics:     m,
		logger:      logger,
		supportPath: opts.SupportPath,
		waNumber:    opts.WhatsAppNumber,
		waText:      opts.WhatsAppText,
	}
}

var menuSuggestions = []string{"Buscar partida", "Ver manuales", "Mi licencia", "Contactar soporte"}

var affirmativeTokens = map[string]bool{
	"si": true, "sí": true, "s": true, "ok": true, "vale": true,
	"dale": true, "claro": true, "bueno": true, "esta bien": true, "listo": true,
}

func containsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// hasWord matches keywords on whole-word boundaries. Short tokens like "ice"
// appear inside unrelated words ("licencia"), so substring matching is not
// safe for them.
func hasWord(text string, keywords ...string) bool {
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		for _, k := range keywords {
			if w == k {
				return true
			}
		}
	}
	return false
}

// Reply produces one conversation turn. sessionID keys the pending-action
// state; userID is empty for anonymous visitors. Lookup failures degrade to
// apology strings, never to an error.
func (c *Controller) Reply(ctx context.Context, message, sessionID, userID string) Result {
	if strings.TrimSpace(message) == "" {
		return Result{
			Reply:       "¡Hola! Soy el Asistente de SISARM. ¿En qué puedo ayudarte hoy?",
			Suggestions: menuSuggestions,
		}
	}

	m := CorrectTypos(Normalize(message))

	// Pending-action pop happens before anything else so the read-once
	// hand-off survives even when the upstream model is configured.
	if affirmativeTokens[m] {
		if action := c.popPendingAction(ctx, sessionID); action != nil {
			c.metrics.ObserveChatReply("session")
			return Result{Reply: "Abriendo la página solicitada...", Suggestions: []string{}, Action: action}
		}
		return Result{Reply: "¡Perfecto! ¿En qué más puedo ayudarte?", Suggestions: menuSuggestions}
	}

	if c.upstream != nil {
		if reply, err := c.upstream.DetectIntent(ctx, sessionID, message); err != nil {
			c.logger.Warn("upstream intent detection failed", "error", err)
		} else if reply != "" {
			c.metrics.ObserveChatReply("upstream")
			return Result{Reply: reply, Suggestions: menuSuggestions}
		}
	}

	if res, ok := c.topicBranches(ctx, m, sessionID, userID); ok {
		c.metrics.ObserveChatReply("rules")
		return res
	}

	if reply, ok := c.matcher.Match(ctx, m); ok {
		c.metrics.ObserveChatReply("matcher")
		return Result{Reply: reply, Suggestions: menuSuggestions}
	}

	c.metrics.ObserveChatReply("default")
	return Result{
		Reply:       DefaultResponse,
		Suggestions: []string{"1", "2", "3", "4"},
	}
}

func (c *Controller) popPendingAction(ctx context.Context, sessionID string) *Action {
	if c.sessions == nil || sessionID == "" {
		return nil
	}
	action, err := c.sessions.ConsumeAction(ctx, sessionID)
	if err != nil {
		c.logger.Warn("session action pop failed", "error", err, "session_id", sessionID)
		return nil
	}
	return action
}

// topicBranches walks the fixed precedence chain. The boolean reports
// whether a branch produced the reply.
func (c *Controller) topicBranches(ctx context.Context, m, sessionID, userID string) (Result, bool) {
	if digitsOnly.MatchString(m) {
		reply, _ := c.matcher.Match(ctx, m)
		suggestions := menuSuggestions
		if reply == InvalidOptionResponse {
			suggestions = []string{"1", "2", "3", "4"}
		}
		return Result{Reply: reply, Suggestions: suggestions}, true
	}

	if containsAny(m, "me ayudas", "me ayuda", "puedes ayudar", "necesito ayuda", "ayudame",
		"dame una mano", "me das una mano", "dame ayuda", "requiero ayuda", "precisa ayuda",
		"necesito soporte", "requiero soporte", "dame soporte", "me das soporte") {
		return Result{
			Reply: "¡Claro que sí! Estoy aquí para ayudarte 😊<br><br>" +
				"Puedo asistirte con:<br><br>" +
				"1️⃣ <strong>Buscar partidas</strong> - Por código o descripción<br>" +
				"2️⃣ <strong>Ver manuales</strong> - Guías de uso<br>" +
				"3️⃣ <strong>Mi licencia</strong> - Estado de tu acceso<br>" +
				"4️⃣ <strong>Contactar soporte</strong> - Hablar con el equipo<br><br>" +
				"¿Cuál necesitas? Escribe el número (1-4) o cuéntame qué buscas.",
			Suggestions: []string{"Buscar partida", "Ver manuales", "Contactar soporte"},
		}, true
	}

	switch m {
	case "riendo", "jaja", "jajaja", "haha":
		return Result{
			Reply:       "😄 ¡Me encanta tu sentido del humor! Pero en serio, ¿qué necesitas? Puedo ayudarte con búsquedas, manuales o tu licencia.",
			Suggestions: []string{"Buscar partida", "Ver manuales", "Mi licencia"},
		}, true
	case "no se", "sin idea", "no idea":
		return Result{
			Reply: "¡Sin problema! Aquí te muestro lo que puedo hacer:<br><br>" +
				"🔍 <strong>Buscar partidas</strong> por código o descripción<br>" +
				"📚 <strong>Ver manuales</strong> para aprender a usar el sistema<br>" +
				"🎫 <strong>Mi licencia</strong> para revisar tu estado de acceso<br>" +
				"💬 <strong>Contactar soporte</strong> si tienes dudas específicas",
			Suggestions: []string{"Buscar partida", "Ver manuales"},
		}, true
	}

	if containsAny(m, "hola", "buenos", "buenas", "saludos", "como estas") {
		return Result{
			Reply: "¡Hola! Soy el Asistente Virtual de SISARM Search. Estoy aquí para ayudarte a buscar partidas arancelarias, " +
				"revisar documentación y resolver dudas. ¿Qué necesitas?",
			Suggestions: menuSuggestions,
		}, true
	}

	switch m {
	case "gracias", "muchas gracias", "entiendo", "merci":
		return Result{
			Reply:       "Con gusto. Si necesitas algo más, aquí estoy para ayudarte 😊",
			Suggestions: []string{"Buscar partida", "Mi licencia", "Contactar soporte"},
		}, true
	case "adios", "chau", "hasta luego", "bye":
		return Result{Reply: "¡Hasta luego! Vuelve cuando necesites, estaré aquí para ayudarte.", Suggestions: []string{}}, true
	}

	if containsAny(m, "buscar", "busco", "busca") {
		return Result{
			Reply: "<strong>Cómo buscar una partida:</strong><br><br>" +
				"1️⃣ Ve a <strong>'Buscar Partidas'</strong> en el menú<br>" +
				"2️⃣ Escribe el código (ej: 010121) o descripción (ej: 'carne')<br>" +
				"3️⃣ Presiona Enter<br>" +
				"4️⃣ Usa los filtros para refinar<br><br>" +
				"Ejemplos:<br>" +
				"• <strong>Código:</strong> 010121 (carnes)<br>" +
				"• <strong>Descripción:</strong> carne, tomate, zapatos<br>" +
				"• <strong>Capítulo:</strong> 01 (animales), 02 (carnes)",
			Suggestions: []string{"Buscar partida", "¿Cómo uso los filtros?", "Qué es una partida"},
		}, true
	}

	if containsAny(m, "donde veo", "donde estan", "donde aparece", "donde busco", "donde encuentro") {
		return c.whereBranch(m), true
	}

	if res, ok := c.glossaryBranches(m); ok {
		return res, true
	}

	if containsAny(m, "manual", "guia", "documentacion", "aprende", "aprender") || m == "ver manuales" {
		return c.manualsBranch(m), true
	}

	if res, ok := c.accountBranches(m); ok {
		return res, true
	}

	if m == "mi licencia" || containsAny(m, "licencia", "caduca") {
		return c.licenseBranch(ctx, userID), true
	}

	if containsAny(m, "renovar") {
		return Result{
			Reply: "<strong>Para renovar:</strong><br><br>" +
				"1️⃣ Ve a '<strong>Soporte</strong>'<br>" +
				"2️⃣ Indica que necesitas renovación<br>" +
				"3️⃣ Responderemos en <24h",
			Suggestions: []string{"Contactar soporte", "¿Cuánto tardan?"},
		}, true
	}

	if containsAny(m, "soporte", "contactar", "ayuda", "problema", "error", "falla",
		"no funciona", "reportar", "reporte", "bug", "issue") {
		return c.supportBranch(ctx, m, sessionID), true
	}

	return Result{}, false
}

func (c *Controller) whereBranch(m string) Result {
	switch {
	case strings.Contains(m, "resultado"):
		return Result{
			Reply: "Los <strong>resultados</strong> aparecen cuando usas el buscador:<br><br>" +
				"1️⃣ Haz clic en el buscador (lupa 🔍)<br>" +
				"2️⃣ Escribe lo que buscas<br>" +
				"3️⃣ Se mostrará una lista con partidas<br>" +
				"4️⃣ Haz clic en una para ver detalles",
			Suggestions: []string{"Buscar partida", "Filtros disponibles"},
		}
	case containsAny(m, "documento", "certificado", "requisito"):
		return Result{
			Reply: "<strong>Documentos y requisitos:</strong><br><br>" +
				"Están en el <strong>detalle de cada partida</strong>:<br><br>" +
				"1️⃣ Busca la partida<br>" +
				"2️⃣ Haz clic en el resultado<br>" +
				"3️⃣ Abajo ves 'Documentos Requeridos'<br>" +
				"4️⃣ Aparece quién emite, tipo de doc, etc.",
			Suggestions: []string{"Buscar partida", "Qué documentos necesito"},
		}
	case strings.Contains(m, "filtro"):
		return Result{
			Reply: "Los <strong>filtros</strong> aparecen en la barra de búsqueda:<br><br>" +
				"📌 <strong>Capítulo:</strong> por categoría<br>" +
				"📌 <strong>Gravamen:</strong> por arancel<br>" +
				"📌 <strong>Entidad:</strong> por quien emite<br>" +
				"📌 <strong>Requisitos:</strong> por exigencias<br><br>" +
				"Selecciona lo que quieras filtrar y presiona buscar.",
			Suggestions: []string{"Filtrar por capítulo", "Buscar partida"},
		}
	default:
		return Result{
			Reply: "Puedo ayudarte a encontrar en SISARM:<br><br>" +
				"🔍 <strong>Partidas</strong> - Busca por código o descripción<br>" +
				"📊 <strong>Filtros</strong> - Refina por capítulo, gravamen, etc<br>" +
				"📄 <strong>Documentos</strong> - Requisitos de cada partida<br><br>" +
				"¿Qué necesitas buscar?",
			Suggestions: []string{"Buscar partida", "Ver documentos"},
		}
	}
}

func (c *Controller) glossaryBranches(m string) (Result, bool) {
	switch {
	case containsAny(m, "que es una partida", "partida arancelaria"):
		return Result{
			Reply: "Una <strong>partida arancelaria</strong> es un código de 6 dígitos que identifica un producto " +
				"en comercio internacional. Cada partida tiene: descripción, gravamen, documentos requeridos y más.",
			Suggestions: []string{"Buscar partida", "¿Qué es una subpartida?"},
		}, true
	case strings.Contains(m, "subpartida"):
		return Result{
			Reply: "Una <strong>subpartida</strong> es una subdivisión de una partida que permite " +
				"clasificación más precisa y requisitos específicos.",
			Suggestions: []string{"Buscar partida", "¿Dónde veo los documentos?"},
		}, true
	case strings.Contains(m, "capitulo") && containsAny(m, "que", "es"):
		return Result{
			Reply: "Un <strong>capítulo arancelario</strong> agrupa partidas por familia de productos. " +
				"Hay 21 capítulos: Capítulo 01 (animales), 02 (carnes), 04 (lácteos), etc.",
			Suggestions: []string{"Buscar partida", "Filtrar por capítulo"},
		}, true
	case containsAny(m, "filtro", "filtrar"):
		return Result{
			Reply: "<strong>Filtros disponibles:</strong><br><br>" +
				"🏷️ <strong>Capítulo:</strong> agrupa por familia<br>" +
				"💰 <strong>Gravamen:</strong> filtra por impuestos<br>" +
				"🏛️ <strong>Entidad:</strong> quién emite el documento<br>" +
				"📋 <strong>Requisitos:</strong> qué se exige<br><br>" +
				"Aplica uno o varios al mismo tiempo.",
			Suggestions: []string{"Buscar partida", "Filtrar por capítulo"},
		}, true
	case containsAny(m, "gravamen", "impuesto") || hasWord(m, "ice", "iehd"):
		return Result{
			Reply: "En el detalle de cada partida encontrarás:<br><br>" +
				"💰 <strong>Gravamen:</strong> porcentaje o valor del arancel<br>" +
				"🔶 <strong>ICE/IEHD:</strong> impuestos especiales (combustibles, bebidas, etc.)<br><br>" +
				"Para verlo: busca la partida y haz clic en el resultado.",
			Suggestions: []string{"Buscar partida", "Ver detalle de partida"},
		}, true
	case containsAny(m, "documento", "requisito", "certificado"):
		return Result{
			Reply: "<strong>Documentos requeridos:</strong><br><br>" +
				"En el detalle de cada partida verás:<br>" +
				"📄 Tipos de documento necesarios<br>" +
				"🏛️ Entidad que emite<br>" +
				"⚖️ Disposición legal<br><br>" +
				"Busca la partida y haz clic para ver todos.",
			Suggestions: []string{"Buscar partida", "Contactar soporte"},
		}, true
	case strings.Contains(m, "entidad"):
		return Result{
			Reply: "La <strong>entidad emisora</strong> es el organismo responsable de emitir documentos. " +
				"Ejemplos: Ministerio de Agricultura, Autoridad Sanitaria, Aduana.<br><br>" +
				"Verla: busca la partida y en el detalle aparecerá.",
			Suggestions: []string{"Buscar partida", "Ver detalle de partida"},
		}, true
	}
	return Result{}, false
}

func (c *Controller) manualsBranch(m string) Result {
	var reply string
	switch {
	case containsAny(m, "buscador", "buscar"):
		reply = "La <strong>Guía del Buscador</strong> te enseña:<br><br>" +
			"✔️ Cómo buscar por código o descripción<br>" +
			"✔️ Cómo usar filtros<br>" +
			"✔️ Ejemplos prácticos<br>" +
			"✔️ Cómo leer los resultados<br>" +
			"✔️ Qué significan los campos<br><br>" +
			"La encuentras en 'Manuales' del menú."
	case containsAny(m, "admin", "administrador"):
		reply = "El <strong>Manual Administrador</strong> explica:<br><br>" +
			"✔️ Importar partidas desde Excel<br>" +
			"✔️ Gestionar usuarios<br>" +
			"✔️ Crear o editar partidas<br>" +
			"✔️ Configuración del sistema<br>" +
			"✔️ Hacer backups<br><br>" +
			"Solo para administradores. Disponible en 'Manuales'."
	case containsAny(m, "faq", "preguntas", "frecuentes"):
		reply = "<strong>FAQ - Preguntas Frecuentes</strong><br><br>" +
			"Responde las dudas más comunes:<br><br>" +
			"❓ ¿Cómo busco una partida?<br>" +
			"❓ ¿Qué es un capítulo arancelario?<br>" +
			"❓ ¿Qué documentos necesito?<br>" +
			"❓ ¿Cómo se usa el filtro de gravamen?<br>" +
			"❓ ¿Cuál es mi licencia?<br><br>" +
			"Disponible en 'Manuales'."
	default:
		reply = "En <strong>'Manuales'</strong> encontrarás:<br><br>" +
			"📖 <strong>Guía del Buscador</strong> - Para buscar partidas<br>" +
			"📖 <strong>Manual Administrador</strong> - Gestión del sistema<br>" +
			"📖 <strong>FAQ</strong> - Preguntas frecuentes<br>" +
			"📖 <strong>Ejemplos prácticos</strong> - Casos de uso<br><br>" +
			"Todo con instrucciones detalladas."
	}
	return Result{Reply: reply, Suggestions: []string{"Ver manuales", "Buscar partida", "FAQ"}}
}

func (c *Controller) accountBranches(m string) (Result, bool) {
	switch {
	case containsAny(m, "registro", "crear cuenta"):
		return Result{
			Reply: "<strong>Para crear una cuenta:</strong><br><br>" +
				"1️⃣ Haz clic en 'Crear cuenta'<br>" +
				"2️⃣ Completa los datos<br>" +
				"3️⃣ Confirma tu correo<br>" +
				"4️⃣ ¡Listo! 7 días de prueba<br><br>" +
				"Necesitas: nombre, apellido, correo, usuario, contraseña.",
			Suggestions: []string{"¿Qué datos necesito?", "Crear cuenta"},
		}, true
	case containsAny(m, "que datos", "datos para registrarme"):
		return Result{
			Reply: "<strong>Datos requeridos:</strong><br><br>" +
				"👤 Nombre completo<br>" +
				"👤 Apellido<br>" +
				"📧 Correo electrónico<br>" +
				"👨‍💻 Nombre de usuario<br>" +
				"🔒 Contraseña (8+ caracteres)<br><br>" +
				"El correo debe ser válido.",
			Suggestions: []string{"Crear cuenta", "¿Puedo registrarme sin correo?"},
		}, true
	case strings.Contains(m, "sin correo"):
		return Result{
			Reply: "No, el correo es obligatorio porque:<br><br>" +
				"✔️ Confirmar tu identidad<br>" +
				"✔️ Recibir notificaciones<br>" +
				"✔️ Recuperar tu cuenta<br><br>" +
				"Si tienes problemas, contacta soporte.",
			Suggestions: []string{"Crear cuenta", "Contactar soporte"},
		}, true
	case strings.Contains(m, "que es la licencia"):
		return Result{
			Reply: "<strong>¿Qué es una licencia?</strong><br><br>" +
				"Tu permiso de acceso a SISARM durante un período.<br><br>" +
				"📅 <strong>Prueba:</strong> 7 días (nuevos usuarios)<br>" +
				"📅 <strong>Pago:</strong> 1, 3 ó 12 meses",
			Suggestions: []string{"¿Está activa mi licencia?", "Cómo renovarla"},
		}, true
	}
	return Result{}, false
}

func (c *Controller) licenseBranch(ctx context.Context, userID string) Result {
	suggestions := []string{"Renovar licencia", "Contactar soporte"}
	if userID == "" {
		return Result{
			Reply:       "Para ver el estado de tu licencia debes iniciar sesión primero. Luego pregúntame 'Mi licencia'.",
			Suggestions: []string{"Iniciar sesión", "Crear cuenta"},
		}
	}
	if c.licenses == nil {
		return Result{Reply: "No se pudo obtener información. Intenta más tarde o contacta soporte.", Suggestions: suggestions}
	}

	st, err := c.licenses.StatusFor(ctx, userID)
	if err != nil {
		c.logger.Warn("license status lookup failed", "error", err, "user_id", userID)
		return Result{Reply: "No se pudo obtener información. Intenta más tarde o contacta soporte.", Suggestions: suggestions}
	}
	if st == nil {
		return Result{Reply: "⚠️ No se encontró licencia activa. Contacta al administrador.", Suggestions: suggestions}
	}

	fecha := st.FechaFin.Format("2006-01-02")
	if st.Estado == license.EstadoExpired {
		return Result{
			Reply: fmt.Sprintf("❌ <strong>Tu licencia expiró</strong><br><br>"+
				"Fecha: %s<br><br>"+
				"Para renovarla usa Soporte.", fecha),
			Suggestions: suggestions,
		}
	}
	reply := fmt.Sprintf("✅ <strong>Tu licencia está activa</strong><br><br>"+
		"Vence el: <strong>%s</strong><br>"+
		"Te quedan: <strong>%d días</strong>", fecha, st.Dias)
	if st.Estado == license.EstadoExpiring {
		reply += "<br><br>⚠️ Está por vencer, considera renovarla desde Soporte."
	}
	return Result{Reply: reply, Suggestions: suggestions}
}

func (c *Controller) supportBranch(ctx context.Context, m, sessionID string) Result {
	if containsAny(m, "whatsapp", "whats", "wasap", "wathsapp") {
		link := fmt.Sprintf("https://wa.me/%s?text=%s", c.waNumber, url.QueryEscape(c.waText))
		return Result{
			Reply: "El soporte principal es vía formulario (<strong>Soporte</strong>) y correo <strong>soporte@sisarm.com</strong>. " +
				"Si prefieres WhatsApp, aquí está nuestro número." +
				fmt.Sprintf(" <br><br><a href=%q target=\"_blank\" class=\"btn btn-success\">Abrir WhatsApp</a>", link),
			Suggestions: []string{"Contactar soporte", "Ver manuales"},
			Action:      &Action{OpenWhatsApp: link, ActionText: "Abrir WhatsApp"},
		}
	}
	if containsAny(m, "tiempo", "tardan", "demora", "cuanto") {
		return Result{
			Reply: "⏱️ <strong>Tiempo de respuesta:</strong><br><br>" +
				"Normalmente: <strong>menos de 24 horas hábiles</strong><br><br>" +
				"Si es urgente, indícalo en tu consulta. Priorizamos casos críticos.",
			Suggestions: []string{"Contactar soporte", "¿Atienden por WhatsApp?"},
		}
	}

	suggestions := []string{"Ir a soporte", "¿Atienden por WhatsApp?"}
	openNow := containsAny(m, "abre", "abrir", "abri") || m == "contactar soporte" || m == "contactar"
	action := Action{OpenResource: c.supportPath, ActionText: "Abrir la página de Soporte."}
	if openNow {
		return Result{Reply: "Abriendo Soporte...", Suggestions: suggestions, Action: &action}
	}

	// Stage the hand-off: an affirmative next turn executes it.
	if c.sessions != nil && sessionID != "" {
		if err := c.sessions.SetAction(ctx, sessionID, action); err != nil {
			c.logger.Warn("session action store failed", "error", err, "session_id", sessionID)
		}
	}
	return Result{
		Reply: "<strong>Formas de contactar:</strong><br><br>" +
			"1️⃣ <strong>Formulario:</strong> 'Contactar Soporte' en el menú<br>" +
			"2️⃣ <strong>Correo:</strong> soporte@sisarm.com<br>" +
			"3️⃣ <strong>WhatsApp:</strong> +591 7 7682918<br><br>" +
			"Respuesta en <24h hábiles.",
		Suggestions: suggestions,
	}
}

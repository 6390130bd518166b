package chat

// Rule is one entry of the assistant's knowledge base: a set of alternative
// patterns (regex, degrading to substring when a pattern does not compile)
// and the canned response they map to. MenuOption links the rule to the
// numeric shortcut menu (1-4); zero means the rule has no shortcut.
type Rule struct {
	Patterns   []string
	Response   string
	MenuOption int
}

// DefaultRules is the production knowledge base, ordered: score ties are
// broken by table position.
func DefaultRules() []Rule {
	return []Rule{
		{
			Patterns: []string{`hola`, `buenos`, `saludos`, `hay.*alguien`, `como.*estas`, `como estas`, `como\s+esta`},
			Response: "¡Hola! Soy el Asistente de SISARM. Soy tu ayudante para buscar partidas arancelarias, entender cómo funciona el sistema y resolver tus dudas. ¿En qué puedo ayudarte hoy?",
		},
		{
			Patterns: []string{`ayuda`, `que.*puedes.*hacer`, `opciones`, `me.*puedes.*ayudar`, `funciones`},
			Response: "Soy tu asistente personal. Puedo ayudarte con:\n\n1️⃣ Buscar Partidas\n2️⃣ Ver Manuales\n3️⃣ Mi Licencia\n4️⃣ Contactar Soporte\n\nEscribe el número (por ejemplo, `1`) o la opción que prefieras.",
		},
		{
			Patterns:   []string{`que\s+es`, `que\s+es\s+sisarm`, `system`, `funcion`, `que.*hace`, `para.*que.*sirve`},
			Response:   "SISARM es un buscador inteligente de partidas arancelarias. Te ayuda a buscar códigos por descripción o código, filtrar por capítulos y ver documentación requerida para cada partida.",
			MenuOption: 1,
		},
		{
			Patterns: []string{`buscar`, `search`, `como.*busco`, `busca.*partida`, `partida`},
			Response: "Puedes buscar por código (ej: 010121) o por descripción (ej: 'carne de res'). Usa los filtros para refinar resultados.",
		},
		{
			Patterns: []string{`010121`, `carne`, `bovino`, `ejemplo.*busqueda`},
			Response: "Ejemplo: busca '010121' o 'carne de res' para ver la partida correspondiente y documentos requeridos.",
		},
		{
			Patterns: []string{`filtro`, `filtros`, `capitulo`, `gravamen`, `filtrar`},
			Response: "Usa los filtros en la interfaz para limitar por capítulo, gravamen y requisitos.",
		},
		{
			Patterns: []string{`documento`, `documentos`, `requisito`, `requisitos`, `certificado`, `documentacion`},
			Response: "En la vista de detalle de cada partida verás la lista de documentos requeridos: certificados, permisos, etc.",
		},
		{
			Patterns:   []string{`licencia`, `vence`, `estado.*licencia`, `renovar`, `reactivar`},
			Response:   "Para renovar la licencia, abre Soporte y envía tus datos; el equipo responde en menos de 24 horas hábiles.",
			MenuOption: 3,
		},
		{
			Patterns:   []string{`soporte`, `contacto`, `ayuda.*humana`, `equipo`, `problema`},
			Response:   "Completa el formulario de Soporte con tu nombre, correo y descripción del problema y el equipo te responderá.",
			MenuOption: 4,
		},
		{
			Patterns:   []string{`manual`, `guia`, `guias`, `tutorial`, `como.*usar`},
			Response:   "En la sección Manuales encontrarás guías prácticas, FAQ y ejemplos de búsqueda.",
			MenuOption: 2,
		},
		{
			Patterns: []string{`exportar`, `excel`, `descargar`, `csv`, `pdf`},
			Response: "Usa el botón Descargar/Exportar en resultados para obtener Excel, CSV o PDF con los campos principales.",
		},
	}
}

// DefaultResponse closes the matcher chain when nothing scored.
const DefaultResponse = "Entiendo que quieres más información. Puedo ayudarte con:\n\n- ¿Qué es SISARM?\n- Cómo buscar\n- Cómo filtrar\n- Licencia\n- Documentos\n- Soporte\n\nEscribe la opción o tu pregunta."

// InvalidOptionResponse answers a numeric input outside the menu range.
const InvalidOptionResponse = "Opción no válida. Elige una:\n\n1️⃣ Buscar partidas\n2️⃣ Ver manuales\n3️⃣ Mi licencia\n4️⃣ Contactar soporte"

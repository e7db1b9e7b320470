// Package icons maps the icon identifiers stored on categories to glyphs
// that a text client can render.
package icons

// Fallback is used for any identifier missing from the registry.
const Fallback = "Tag"

// Glyph is a renderable icon.
type Glyph struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

var registry = []Glyph{
	{"Home", "🏠"},
	{"Car", "🚗"},
	{"Utensils", "🍴"},
	{"ShoppingBag", "🛍️"},
	{"Zap", "⚡"},
	{"Droplet", "💧"},
	{"Wifi", "📶"},
	{"Gift", "🎁"},
	{"Briefcase", "💼"},
	{"GraduationCap", "🎓"},
	{"HeartPulse", "❤️"},
	{"Plane", "✈️"},
	{"Gamepad", "🎮"},
	{"Shirt", "👕"},
	{"DollarSign", "💲"},
	{"Smartphone", "📱"},
	{"Coffee", "☕"},
	{"Music", "🎵"},
	{"Hammer", "🔨"},
	{"Book", "📖"},
	{"Dog", "🐕"},
	{"Baby", "👶"},
	{"ShoppingCart", "🛒"},
	{"Dumbbell", "🏋️"},
	{"Stethoscope", "🩺"},
	{"Bus", "🚌"},
	{"Fuel", "⛽"},
	{"Lightbulb", "💡"},
	{"CreditCard", "💳"},
	{"Tag", "🏷️"},
}

var byID = func() map[string]Glyph {
	m := make(map[string]Glyph, len(registry))
	for _, g := range registry {
		m[g.ID] = g
	}
	return m
}()

// Lookup returns the glyph for id, or the Fallback glyph.
func Lookup(id string) Glyph {
	if g, ok := byID[id]; ok {
		return g
	}
	return byID[Fallback]
}

// Known reports whether id is in the registry.
func Known(id string) bool {
	_, ok := byID[id]
	return ok
}

// Available returns the selectable identifiers in registry order.
func Available() []string {
	out := make([]string, len(registry))
	for i, g := range registry {
		out[i] = g.ID
	}
	return out
}

// All returns a copy of the registry.
func All() []Glyph {
	return append([]Glyph(nil), registry...)
}

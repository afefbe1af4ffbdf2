package discovery

// Slot names collected by the discovery flow.
const (
	SlotPain   = "pain"
	SlotUsers  = "users"
	SlotKPI    = "kpi"
	SlotBudget = "budget"
)

// Slot pairs a required field with the follow-up question asked while it is missing.
type Slot struct {
	Name     string
	Question string
}

// RequiredSlots lists the discovery fields in priority order.
var RequiredSlots = []Slot{
	{Name: SlotPain, Question: "Qual a dor principal que você quer resolver com essa solução?"},
	{Name: SlotUsers, Question: "Quem são os usuários-alvo (descrição breve)?"},
	{Name: SlotKPI, Question: "Qual a métrica de sucesso principal (ex.: conversão, retenção)?"},
	{Name: SlotBudget, Question: "Qual a faixa de orçamento disponível para esse projeto?"},
}

// SlotNames returns the required slot names in priority order.
func SlotNames() []string {
	names := make([]string, len(RequiredSlots))
	for i, slot := range RequiredSlots {
		names[i] = slot.Name
	}
	return names
}

// IsSlotKey reports whether key may appear in a session's slot map.
func IsSlotKey(key string) bool {
	if key == ConfidenceKey {
		return true
	}
	for _, slot := range RequiredSlots {
		if slot.Name == key {
			return true
		}
	}
	return false
}

// NextMissing returns the first required slot absent from slots.
func NextMissing(slots Slots) (Slot, bool) {
	for _, slot := range RequiredSlots {
		if !slots.Has(slot.Name) {
			return slot, true
		}
	}
	return Slot{}, false
}

// QuestionFor returns the canned question for a slot name.
func QuestionFor(name string) (string, bool) {
	for _, slot := range RequiredSlots {
		if slot.Name == name {
			return slot.Question, true
		}
	}
	return "", false
}

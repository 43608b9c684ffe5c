package template

// CreatePayload builds the body for creating a template from a local
// document. Ids belong to the controller the document was pulled from, so
// they are dropped along with parameter selections.
func CreatePayload(doc Document, content string) Document {
	p := doc.Clone()
	delete(p, FieldID)
	stripParams(p, FieldID, FieldSelection)
	p[FieldContent] = content
	return p
}

// UpdatePayload builds the body for updating the existing template
// templateID from a local document.
func UpdatePayload(doc Document, templateID, content string) Document {
	p := doc.Clone()
	p[FieldID] = templateID
	stripParams(p, FieldID, FieldSelection)
	p[FieldContent] = content
	return p
}

func stripParams(doc Document, keys ...string) {
	raw, ok := doc[FieldParams].([]interface{})
	if !ok {
		return
	}
	for _, p := range raw {
		m, ok := p.(map[string]interface{})
		if !ok {
			continue
		}
		for _, k := range keys {
			delete(m, k)
		}
	}
}

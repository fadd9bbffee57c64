package service

// extractedConcept carries the model's correlation key (its id, or the name
// when no id was given).
type extractedConcept struct {
	Key         string
	Name        string
	Description string
}

type extractedQuestion struct {
	Key      string
	Prompt   string
	Position *int
}

type extractedLink struct {
	QuestionKey string
	ConceptKey  string
}

// extraction is the validated form of a model reply. Entries that cannot be
// used are dropped here, so nothing downstream reads raw JSON.
type extraction struct {
	Concepts           []extractedConcept
	Questions          []extractedQuestion
	QuestionConcepts   []extractedLink
	AssignmentConcepts []string
}

func (e extraction) empty() bool {
	return len(e.Concepts) == 0 && len(e.Questions) == 0
}

func normalizeExtraction(payload map[string]any) extraction {
	var out extraction
	for _, c := range normalizeList(payload["concepts"]) {
		name := asString(c["name"])
		key := keyString(c["id"])
		if key == "" {
			key = name
		}
		if name == "" || key == "" {
			continue
		}
		out.Concepts = append(out.Concepts, extractedConcept{
			Key:         key,
			Name:        name,
			Description: asString(c["description"]),
		})
	}
	for _, q := range normalizeList(payload["questions"]) {
		key := keyString(q["id"])
		prompt := asString(q["prompt"])
		if key == "" || prompt == "" {
			continue
		}
		eq := extractedQuestion{Key: key, Prompt: prompt}
		if pos, ok := asInt(q["position"]); ok {
			p := int(pos)
			eq.Position = &p
		}
		out.Questions = append(out.Questions, eq)
	}
	for _, l := range normalizeList(payload["question_concepts"]) {
		qk, ck := keyString(l["question_id"]), keyString(l["concept_id"])
		if qk == "" || ck == "" {
			continue
		}
		out.QuestionConcepts = append(out.QuestionConcepts, extractedLink{QuestionKey: qk, ConceptKey: ck})
	}
	for _, l := range normalizeList(payload["assignment_concepts"]) {
		if ck := keyString(l["concept_id"]); ck != "" {
			out.AssignmentConcepts = append(out.AssignmentConcepts, ck)
		}
	}
	return out
}

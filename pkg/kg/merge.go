package kg

// MergeEntities folds newEntities into entities by ID. On collision the
// property maps union with the newer value winning per key, the type stays
// as first seen, and source lists accumulate. Entities keep their first-seen
// order so repeated merges over the same input are deterministic.
func MergeEntities(entities, newEntities []Entity) []Entity {
	index := make(map[string]int, len(entities))
	for i := range entities {
		index[entities[i].ID] = i
	}

	for _, entity := range newEntities {
		if entity.ID == "" {
			continue
		}
		i, found := index[entity.ID]
		if !found {
			index[entity.ID] = len(entities)
			entities = append(entities, entity)
			continue
		}

		existing := &entities[i]
		if len(entity.Properties) > 0 && existing.Properties == nil {
			existing.Properties = make(map[string]string, len(entity.Properties))
		}
		for k, v := range entity.Properties {
			existing.Properties[k] = v
		}
		for _, src := range entity.Sources {
			existing.AddSource(src)
		}
	}

	return entities
}

// MergeRelationships appends the relationships of newRelations whose
// (source, target, type) signature has not been seen yet. The first
// occurrence wins; later duplicates only contribute their sources.
func MergeRelationships(relations, newRelations []Relationship) []Relationship {
	index := make(map[string]int, len(relations))
	for i := range relations {
		index[relations[i].Signature()] = i
	}

	for _, rel := range newRelations {
		if rel.Source == "" || rel.Target == "" {
			continue
		}
		i, found := index[rel.Signature()]
		if !found {
			index[rel.Signature()] = len(relations)
			relations = append(relations, rel)
			continue
		}
		for _, src := range rel.Sources {
			relations[i].AddSource(src)
		}
	}

	return relations
}

// Merge folds other into g, dropping relationships whose endpoints are not
// present after the entity merge.
func (g *Graph) Merge(other Graph) {
	g.Entities = MergeEntities(g.Entities, other.Entities)

	known := make(map[string]bool, len(g.Entities))
	for i := range g.Entities {
		known[g.Entities[i].ID] = true
	}

	incoming := make([]Relationship, 0, len(other.Relationships))
	for _, rel := range other.Relationships {
		if known[rel.Source] && known[rel.Target] {
			incoming = append(incoming, rel)
		}
	}
	g.Relationships = MergeRelationships(g.Relationships, incoming)
}

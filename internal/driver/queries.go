package driver

var FactIndexQueries = []string{
	"CREATE INDEX ON :Fact(id);",
	"CREATE INDEX ON :Fact(profile_id);",
	"CREATE INDEX ON :Fact(status);",
	"CREATE INDEX ON :Fact(contradiction_group_id);",
}

const factReturn = `
		RETURN f.id AS id,
			f.profile_id AS profile_id,
			f.content AS content,
			f.type AS type,
			f.source AS source,
			f.confidence AS confidence,
			f.importance AS importance,
			f.support_count AS support_count,
			f.status AS status,
			f.contradiction_group_id AS contradiction_group_id,
			f.is_protected AS is_protected,
			f.created_at AS created_at,
			f.updated_at AS updated_at
`

const (
	CreateFactQuery = `
		CREATE (f:Fact {
			id: $id,
			profile_id: $profile_id,
			content: $content,
			type: $type,
			source: $source,
			confidence: $confidence,
			importance: $importance,
			support_count: $support_count,
			status: $status,
			is_protected: $is_protected,
			created_at: $created_at,
			updated_at: $updated_at
		})
		RETURN f.id AS id
	`

	GetFactQuery = `
		MATCH (f:Fact {id: $id, profile_id: $profile_id})
	` + factReturn

	// Only ungrouped ACTIVE facts take part in new checks.
	ListActiveFactsQuery = `
		MATCH (f:Fact {profile_id: $profile_id, status: 'ACTIVE'})
		WHERE f.contradiction_group_id IS NULL
		WITH f ORDER BY f.created_at DESC LIMIT $limit
	` + factReturn

	ListFactsQuery = `
		MATCH (f:Fact {profile_id: $profile_id})
		WHERE $status = '' OR f.status = $status
		WITH f ORDER BY f.importance DESC, f.created_at DESC SKIP $offset LIMIT $limit
	` + factReturn

	MarkGroupQuery = `
		MATCH (f:Fact)
		WHERE f.id IN $ids
		SET f.status = 'AMBIGUOUS',
			f.contradiction_group_id = $group_id,
			f.updated_at = $updated_at
		RETURN count(f) AS updated
	`

	SetStatusQuery = `
		MATCH (f:Fact {id: $id})
		SET f.status = $status,
			f.updated_at = $updated_at
		RETURN count(f) AS updated
	`

	// ResolveGroupQuery writes a whole group in one statement so the group
	// is never observed without its active primary.
	ResolveGroupQuery = `
		MATCH (f:Fact)
		WHERE f.id IN $ids
		SET f.contradiction_group_id = $group_id,
			f.status = CASE WHEN f.id = $primary_id THEN 'ACTIVE' ELSE 'AMBIGUOUS' END,
			f.updated_at = $updated_at
		RETURN count(f) AS updated
	`
)

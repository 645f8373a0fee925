package prompts

type builtin struct {
	category Category
	name     string
	text     string
}

var builtins = []builtin{
	{CategoryKeywords, DefaultName, KeywordsPrompt},
	{CategoryKeywords, "cjk", KeywordsPromptCJK},
	{CategorySummary, DefaultName, SummaryPrompt},
	{CategorySummary, "cjk", SummaryPromptCJK},
	{CategoryKnowledgeGraph, DefaultName, ExtractPromptGeneral},
	{CategoryKnowledgeGraph, "technical", ExtractPromptTechnical},
	{CategoryKnowledgeGraph, "academic", ExtractPromptAcademic},
	{CategoryKnowledgeGraph, "business", ExtractPromptBusiness},
	{CategoryKnowledgeGraph, "legal", ExtractPromptLegal},
}

const KeywordsPrompt = `
# Task Context
You are a keyword extraction assistant for a document analysis pipeline. You will be given one chunk of a larger document.

# Background Data
- **Domain:** {{.Domain}}
- **Language:** {{.Language}}
- **Maximum keywords:** {{.MaxKeywords}}

# Detailed Task Description & Rules
- Extract the most significant keywords and key phrases from the text below.
- Prefer domain terminology over generic words; skip stopwords, filler, and boilerplate.
- Keep multi-word technical terms together as one keyword (e.g., "message queue", not "message" and "queue").
- Assign each keyword a relevance score between 0.0 and 1.0 (higher = more central to the text).
- Assign each keyword a short lowercase category such as "concept", "technology", "organization", "person", "method", or "metric".
- Return at most {{.MaxKeywords}} keywords, ordered by descending score.
- Every keyword must appear in the text or be directly supported by it. Do not invent keywords.
- Write keywords in the language of the source text.

# Text
{{.Text}}

# Output Formatting
Return a JSON object with this structure:
{
  "keywords": [
    {"keyword": "string", "score": 0.0, "category": "string"}
  ]
}
Do not include any commentary, explanations, or text outside of the JSON.
Always return valid JSON, even if no keywords are found (use an empty array in that case).
`

const KeywordsPromptCJK = `
# Task Context
You are a keyword extraction assistant for a document analysis pipeline. You will be given one chunk of a larger document written mostly in Korean, Japanese, or Chinese.

# Background Data
- **Domain:** {{.Domain}}
- **Language:** {{.Language}}
- **Maximum keywords:** {{.MaxKeywords}}

# Detailed Task Description & Rules
- Extract the most significant keywords and key phrases from the text below.
- Keep keywords in their original script. Never romanize or translate them.
- A keyword must be at least two characters long; drop single-character particles and suffixes.
- Strip grammatical particles from keyword boundaries (e.g., use "문서 분석", not "문서 분석을").
- Keep compound domain terms together as one keyword.
- Latin-script terms embedded in the text (product names, acronyms) are valid keywords as written.
- Assign each keyword a relevance score between 0.0 and 1.0 (higher = more central to the text).
- Assign each keyword a short lowercase category such as "concept", "technology", "organization", "person", "method", or "metric".
- Return at most {{.MaxKeywords}} keywords, ordered by descending score.
- Every keyword must appear in the text or be directly supported by it. Do not invent keywords.

# Text
{{.Text}}

# Output Formatting
Return a JSON object with this structure:
{
  "keywords": [
    {"keyword": "string", "score": 0.0, "category": "string"}
  ]
}
Do not include any commentary, explanations, or text outside of the JSON.
Always return valid JSON, even if no keywords are found (use an empty array in that case).
`

const SummaryPrompt = `
# Task Context
You are a summarization assistant for a document analysis pipeline. You will be given one chunk of a larger document.

# Background Data
- **Section title:** {{.Title}}
- **Language:** {{.Language}}

# Detailed Task Description & Rules
- Read the text below and produce a structured summary.
- "intro" captures how the text opens; "conclusion" captures how it closes. Each is at most two sentences.
- "core" states the central point of the text in one to three sentences.
- "topics" lists the main subjects discussed, most important first, at most eight entries.
- "tone" is one short lowercase label such as "technical", "formal", "narrative", "persuasive", or "neutral".
- Use only information present in the text. Do not infer, assume, or add external knowledge.
- Respond in the same language as the source text.

# Text
{{.Text}}

# Output Formatting
Return a JSON object with this structure:
{
  "intro": "string",
  "conclusion": "string",
  "core": "string",
  "topics": ["string"],
  "tone": "string"
}
Do not include any commentary, explanations, or text outside of the JSON.
`

const SummaryPromptCJK = `
# Task Context
You are a summarization assistant for a document analysis pipeline. You will be given one chunk of a larger document written mostly in Korean, Japanese, or Chinese.

# Background Data
- **Section title:** {{.Title}}
- **Language:** {{.Language}}

# Detailed Task Description & Rules
- Read the text below and produce a structured summary in the same language as the text. Never translate into English.
- "intro" captures how the text opens; "conclusion" captures how it closes. Each is at most two sentences.
- "core" states the central point of the text in one to three sentences.
- "topics" lists the main subjects discussed, most important first, at most eight entries. Topics stay in the original script.
- "tone" is one short lowercase English label such as "technical", "formal", "narrative", "persuasive", or "neutral".
- Use only information present in the text. Do not infer, assume, or add external knowledge.

# Text
{{.Text}}

# Output Formatting
Return a JSON object with this structure:
{
  "intro": "string",
  "conclusion": "string",
  "core": "string",
  "topics": ["string"],
  "tone": "string"
}
Do not include any commentary, explanations, or text outside of the JSON.
`

const ExtractPromptGeneral = `
# Task Context
You are tasked with extracting structured entity and relationship information from the provided text. Capture everything explicitly present in the text, without omission.

# Background Data
- **Entity_types:** [PERSON, ORGANIZATION, LOCATION, CONCEPT, EVENT, PRODUCT]
- **Language:** {{.Language}}

# Detailed Task Description & Rules
## Entity Extraction
1. Identify all entities of the listed types in the text.
2. For each entity, extract:
   - **name:** the entity name as the text supports it.
   - **type:** one of the listed types.
   - **properties:** a flat map of attributes explicitly stated in the text (dates, quantities, roles). Use string values. Use an empty map when the text states no attributes.

## Relationship Extraction
1. From the identified entities, determine all clear relationships between pairs of entities.
2. For each relationship, extract:
   - **source:** name of the source entity.
   - **target:** name of the target entity.
   - **type:** a short lowercase label such as "works_for", "located_in", "part_of", "participates_in".
   - **description:** one sentence explaining the relationship, based strictly on the text.
3. Only extract relationships whose endpoints both appear in the entities list.

# Text
{{.Text}}

# Output Formatting
Return a JSON object with this structure:
{
  "entities": [
    {"name": "string", "type": "string", "properties": {"key": "value"}}
  ],
  "relationships": [
    {"source": "string", "target": "string", "type": "string", "description": "string"}
  ]
}
Do not include any commentary, explanations, or text outside of the JSON.
Always return valid JSON, even if no entities or relationships are found (use empty arrays in that case).
`

const ExtractPromptTechnical = `
# Task Context
You are tasked with extracting structured entity and relationship information from a technical document (specification, manual, architecture description, or source documentation). Capture everything explicitly present in the text, without omission.

# Background Data
- **Entity_types:** [SYSTEM, COMPONENT, TECHNOLOGY, PROTOCOL, TOOL, METRIC, ORGANIZATION]
- **Language:** {{.Language}}

# Detailed Task Description & Rules
## Technical Document Handling
- Version numbers, configuration values, limits, and units are properties of the entity they describe, not separate entities.
- Treat named subsystems, modules, services, and libraries as COMPONENT entities.
- Treat standards, formats, and wire protocols as PROTOCOL entities.
- Measured or budgeted quantities (throughput, latency, capacity) are METRIC entities only when the text discusses them as subjects; otherwise record them as properties.

## Entity Extraction
1. Identify all entities of the listed types in the text.
2. For each entity, extract:
   - **name:** the entity name as the text supports it.
   - **type:** one of the listed types.
   - **properties:** a flat map of attributes explicitly stated in the text (versions, defaults, limits, units). Use string values. Use an empty map when the text states no attributes.

## Relationship Extraction
1. From the identified entities, determine all clear relationships between pairs of entities.
2. For each relationship, extract:
   - **source:** name of the source entity.
   - **target:** name of the target entity.
   - **type:** a short lowercase label such as "depends_on", "implements", "configures", "part_of", "communicates_with".
   - **description:** one sentence explaining the relationship, based strictly on the text.
3. Only extract relationships whose endpoints both appear in the entities list.

# Text
{{.Text}}

# Output Formatting
Return a JSON object with this structure:
{
  "entities": [
    {"name": "string", "type": "string", "properties": {"key": "value"}}
  ],
  "relationships": [
    {"source": "string", "target": "string", "type": "string", "description": "string"}
  ]
}
Do not include any commentary, explanations, or text outside of the JSON.
Always return valid JSON, even if no entities or relationships are found (use empty arrays in that case).
`

const ExtractPromptAcademic = `
# Task Context
You are tasked with extracting structured entity and relationship information from an academic text (paper, thesis, survey, or lecture material). Capture everything explicitly present in the text, without omission.

# Background Data
- **Entity_types:** [CONCEPT, METHOD, DATASET, AUTHOR, INSTITUTION, PUBLICATION, FINDING]
- **Language:** {{.Language}}

# Detailed Task Description & Rules
## Academic Document Handling
- Cited works are PUBLICATION entities; their authors are AUTHOR entities only when named in the text.
- Experimental results and stated conclusions are FINDING entities with the quantitative details kept in properties.
- Named techniques, algorithms, and procedures are METHOD entities.
- Do not promote section headings to entities.

## Entity Extraction
1. Identify all entities of the listed types in the text.
2. For each entity, extract:
   - **name:** the entity name as the text supports it.
   - **type:** one of the listed types.
   - **properties:** a flat map of attributes explicitly stated in the text (years, sample sizes, scores). Use string values. Use an empty map when the text states no attributes.

## Relationship Extraction
1. From the identified entities, determine all clear relationships between pairs of entities.
2. For each relationship, extract:
   - **source:** name of the source entity.
   - **target:** name of the target entity.
   - **type:** a short lowercase label such as "proposes", "evaluates_on", "extends", "cites", "affiliated_with".
   - **description:** one sentence explaining the relationship, based strictly on the text.
3. Only extract relationships whose endpoints both appear in the entities list.

# Text
{{.Text}}

# Output Formatting
Return a JSON object with this structure:
{
  "entities": [
    {"name": "string", "type": "string", "properties": {"key": "value"}}
  ],
  "relationships": [
    {"source": "string", "target": "string", "type": "string", "description": "string"}
  ]
}
Do not include any commentary, explanations, or text outside of the JSON.
Always return valid JSON, even if no entities or relationships are found (use empty arrays in that case).
`

const ExtractPromptBusiness = `
# Task Context
You are tasked with extracting structured entity and relationship information from a business document (report, plan, announcement, or market analysis). Capture everything explicitly present in the text, without omission.

# Background Data
- **Entity_types:** [ORGANIZATION, PERSON, PRODUCT, MARKET, METRIC, EVENT]
- **Language:** {{.Language}}

# Detailed Task Description & Rules
## Business Document Handling
- Keep distinct legal entities separate (e.g., a parent company and its subsidiary are two ORGANIZATION entities).
- Revenue figures, growth rates, and market shares are METRIC entities when the text discusses them as subjects; otherwise record them as properties of the organization or product they describe.
- Announced launches, acquisitions, and partnerships are EVENT entities with their dates in properties.

## Entity Extraction
1. Identify all entities of the listed types in the text.
2. For each entity, extract:
   - **name:** the entity name as the text supports it.
   - **type:** one of the listed types.
   - **properties:** a flat map of attributes explicitly stated in the text (amounts, dates, roles, regions). Use string values. Use an empty map when the text states no attributes.

## Relationship Extraction
1. From the identified entities, determine all clear relationships between pairs of entities.
2. For each relationship, extract:
   - **source:** name of the source entity.
   - **target:** name of the target entity.
   - **type:** a short lowercase label such as "acquires", "competes_with", "supplies", "leads", "operates_in".
   - **description:** one sentence explaining the relationship, based strictly on the text.
3. Only extract relationships whose endpoints both appear in the entities list.

# Text
{{.Text}}

# Output Formatting
Return a JSON object with this structure:
{
  "entities": [
    {"name": "string", "type": "string", "properties": {"key": "value"}}
  ],
  "relationships": [
    {"source": "string", "target": "string", "type": "string", "description": "string"}
  ]
}
Do not include any commentary, explanations, or text outside of the JSON.
Always return valid JSON, even if no entities or relationships are found (use empty arrays in that case).
`

const ExtractPromptLegal = `
# Task Context
You are tasked with extracting structured entity and relationship information from a legal document (contract, statute, filing, policy, or ordinance). Capture everything explicitly present in the text, without omission.

# Background Data
- **Entity_types:** [PARTY, STATUTE, CONTRACT, OBLIGATION, COURT, JURISDICTION]
- **Language:** {{.Language}}

# Detailed Task Description & Rules
## Legal Document Handling
- Natural persons and legal persons bound by the document are PARTY entities with their roles (lessor, claimant, contractor) in properties.
- Referenced laws, regulations, and articles are STATUTE entities named exactly as cited.
- Duties, payment terms, deadlines, and penalties are OBLIGATION entities with amounts and dates in properties.
- Never paraphrase defined terms; keep the document's own wording in names and descriptions.

## Entity Extraction
1. Identify all entities of the listed types in the text.
2. For each entity, extract:
   - **name:** the entity name as the text supports it.
   - **type:** one of the listed types.
   - **properties:** a flat map of attributes explicitly stated in the text (dates, amounts, case numbers, roles). Use string values. Use an empty map when the text states no attributes.

## Relationship Extraction
1. From the identified entities, determine all clear relationships between pairs of entities.
2. For each relationship, extract:
   - **source:** name of the source entity.
   - **target:** name of the target entity.
   - **type:** a short lowercase label such as "party_to", "obligated_by", "governed_by", "cites", "has_jurisdiction_over".
   - **description:** one sentence explaining the relationship, based strictly on the text.
3. Only extract relationships whose endpoints both appear in the entities list.

# Text
{{.Text}}

# Output Formatting
Return a JSON object with this structure:
{
  "entities": [
    {"name": "string", "type": "string", "properties": {"key": "value"}}
  ],
  "relationships": [
    {"source": "string", "target": "string", "type": "string", "description": "string"}
  ]
}
Do not include any commentary, explanations, or text outside of the JSON.
Always return valid JSON, even if no entities or relationships are found (use empty arrays in that case).
`

package registry

// schema is the JSON schema a registry document must satisfy.
const schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": ["entities"],
  "properties": {
    "prefix": {"type": "string", "pattern": "^[a-z0-9_.-]*$"},
    "extra_indices": {
      "type": "array",
      "items": {"type": "string", "pattern": "^[a-z0-9][a-z0-9_.-]*$"}
    },
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "pattern": "^[A-Za-z][A-Za-z0-9_-]*$"},
          "timeseries_aspects": {
            "type": "array",
            "items": {"type": "string", "pattern": "^[A-Za-z][A-Za-z0-9_-]*$"}
          },
          "settings": {"type": "object"},
          "mappings": {"type": "object"}
        }
      }
    }
  }
}`

package pattern

const schemaURL = "pattern.schema.json"

// Schema of a per-rank pattern document.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["doid", "blocks"],
  "properties": {
    "doid": {"type": "string", "minLength": 1},
    "rank": {"type": "integer", "minimum": 0},
    "blocks": {
      "type": "array",
      "items": {"$ref": "#/definitions/block"}
    }
  },
  "definitions": {
    "dims": {
      "type": "array",
      "items": {"type": "integer", "minimum": 0}
    },
    "block": {
      "type": "object",
      "required": ["var", "dtype", "shape", "start", "count", "bufferStart", "bufferCount"],
      "properties": {
        "var": {"type": "string", "minLength": 1},
        "dtype": {
          "enum": [
            "int8", "int16", "int32", "int64",
            "uint8", "uint16", "uint32", "uint64",
            "float", "double", "float complex", "double complex", "char"
          ]
        },
        "order": {"enum": ["row", "column"]},
        "shape": {"$ref": "#/definitions/dims"},
        "start": {"$ref": "#/definitions/dims"},
        "count": {"$ref": "#/definitions/dims"},
        "bufferStart": {"type": "integer", "minimum": 0},
        "bufferCount": {"type": "integer", "minimum": 0}
      }
    }
  }
}`

package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Classroom Skill API",
        "description": "Answers voice-assistant education queries from Google Classroom",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "CallerToken": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Skill", "description": "Education skill directives and lifecycle events"},
        {"name": "Mappings", "description": "Platform to voice user links"},
        {"name": "Ops", "description": "Health and metrics"}
    ],
    "paths": {
        "/skill/query": {
            "post": {
                "tags": ["Skill"],
                "summary": "Answer an education skill directive",
                "security": [{"CallerToken": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/SkillRequest"}}
                ],
                "responses": {
                    "200": {"description": "Namespace-typed response envelope", "schema": {"$ref": "#/definitions/SkillResponse"}},
                    "400": {"description": "Invalid directive or unknown namespace", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Caller or linked account rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Course enumeration failed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/skill/events": {
            "post": {
                "tags": ["Skill"],
                "summary": "Handle a skill lifecycle event",
                "security": [{"CallerToken": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/SkillEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "Event acknowledged", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid or unsupported event", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Registrations disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/mappings/{platformUserId}": {
            "get": {
                "tags": ["Mappings"],
                "summary": "Resolve the voice user linked to a platform user",
                "security": [{"CallerToken": []}],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "platformUserId", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Mapping", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No mapping", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Mappings disabled", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/health": {
            "get": {"tags": ["Ops"], "summary": "Liveness check", "responses": {"200": {"description": "OK"}}}
        },
        "/ready": {
            "get": {
                "tags": ["Ops"],
                "summary": "Readiness check",
                "responses": {"200": {"description": "Ready"}, "503": {"description": "A dependency is down"}}
            }
        },
        "/metrics": {
            "get": {"tags": ["Ops"], "summary": "Prometheus metrics", "produces": ["text/plain"], "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "SkillRequest": {
            "type": "object",
            "properties": {
                "request": {
                    "type": "object",
                    "properties": {
                        "header": {"$ref": "#/definitions/Header"},
                        "authorization": {
                            "type": "object",
                            "properties": {"type": {"type": "string"}, "token": {"type": "string"}}
                        },
                        "payload": {
                            "type": "object",
                            "properties": {
                                "query": {
                                    "type": "object",
                                    "properties": {
                                        "matchAll": {
                                            "type": "object",
                                            "properties": {
                                                "studentId": {"type": "string"},
                                                "courseId": {"type": "string"},
                                                "dueTime": {
                                                    "type": "object",
                                                    "properties": {
                                                        "start": {"type": "string", "format": "date-time"},
                                                        "end": {"type": "string", "format": "date-time"}
                                                    }
                                                }
                                            }
                                        }
                                    }
                                },
                                "paginationContext": {
                                    "type": "object",
                                    "properties": {"maxResults": {"type": "integer", "minimum": 1}}
                                }
                            }
                        }
                    }
                }
            }
        },
        "Header": {
            "type": "object",
            "properties": {
                "namespace": {
                    "type": "string",
                    "enum": [
                        "Alexa.Education.Profile.Student",
                        "Alexa.Education.Course",
                        "Alexa.Education.Coursework",
                        "Alexa.Education.Grade.Coursework",
                        "Alexa.Education.School.Communication"
                    ]
                },
                "name": {"type": "string"},
                "messageId": {"type": "string"},
                "interfaceVersion": {"type": "string"}
            }
        },
        "SkillResponse": {
            "type": "object",
            "properties": {
                "response": {
                    "type": "object",
                    "properties": {
                        "header": {"$ref": "#/definitions/Header"},
                        "payload": {
                            "type": "object",
                            "description": "paginationContext plus one array keyed by namespace: studentProfiles, courses, coursework, courseworkGrades or schoolCommunications",
                            "properties": {
                                "paginationContext": {
                                    "type": "object",
                                    "properties": {"totalCount": {"type": "integer"}}
                                }
                            },
                            "additionalProperties": {"type": "array", "items": {"type": "object"}}
                        }
                    }
                }
            }
        },
        "SkillEventRequest": {
            "type": "object",
            "properties": {
                "context": {"type": "object"},
                "request": {
                    "type": "object",
                    "properties": {
                        "type": {"type": "string"},
                        "requestId": {"type": "string"},
                        "timestamp": {"type": "string"},
                        "body": {"type": "object"}
                    }
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}

// Package docs registers the Swagger document served at /swagger/index.html.
// Regenerate with: swag init -g cmd/server/main.go -o docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/checkin": {
			"get": {
				"tags": [
					"Checkin"
				],
				"summary": "Check-in flow state",
				"operationId": "getCheckin",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Fiscal user ID"
					},
					{
						"name": "mess_hall_id",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Mess hall for a new flow"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/checkin/filter": {
			"put": {
				"tags": [
					"Checkin"
				],
				"summary": "Change the check-in slot",
				"operationId": "setCheckinFilter",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Fiscal user ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Filter",
						"schema": {
							"$ref": "#/definitions/handlers.CheckinFilterRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/checkin/scan": {
			"post": {
				"tags": [
					"Checkin"
				],
				"summary": "Submit a scanned QR code",
				"operationId": "scanCheckin",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Fiscal user ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Payload",
						"schema": {
							"$ref": "#/definitions/handlers.ScanRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"422": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/checkin/decision": {
			"put": {
				"tags": [
					"Checkin"
				],
				"summary": "Set the dialog decision",
				"operationId": "setCheckinDecision",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Fiscal user ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Decision",
						"schema": {
							"$ref": "#/definitions/handlers.DecisionRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/checkin/confirm": {
			"post": {
				"tags": [
					"Checkin"
				],
				"summary": "Confirm the open dialog",
				"operationId": "confirmCheckin",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Fiscal user ID"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/checkin/cancel": {
			"post": {
				"tags": [
					"Checkin"
				],
				"summary": "Close the dialog without recording",
				"operationId": "cancelCheckin",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Fiscal user ID"
					}
				],
				"responses": {
					"204": {
						"description": "OK"
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/checkin/self": {
			"post": {
				"tags": [
					"Checkin"
				],
				"summary": "Check in at a mess hall",
				"operationId": "selfCheckin",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Diner user ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Mess hall code",
						"schema": {
							"$ref": "#/definitions/handlers.SelfCheckinRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "Already registered or skipped"
					},
					"201": {
						"description": "Presence recorded"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/dashboard/metrics": {
			"get": {
				"tags": [
					"Dashboard"
				],
				"summary": "Dashboard metrics",
				"operationId": "dashboardMetrics",
				"parameters": [
					{
						"name": "start",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "First day"
					},
					{
						"name": "end",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Last day"
					},
					{
						"name": "unit_id",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Unit ID"
					},
					{
						"name": "mess_hall_id",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Mess hall ID"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/dashboard/presences": {
			"get": {
				"tags": [
					"Dashboard"
				],
				"summary": "Aggregated presence records",
				"operationId": "dashboardPresences",
				"parameters": [
					{
						"name": "start",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "First day"
					},
					{
						"name": "end",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Last day"
					},
					{
						"name": "unit_id",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Unit ID"
					},
					{
						"name": "mess_hall_id",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Mess hall ID"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/dashboard/presences/csv": {
			"get": {
				"tags": [
					"Dashboard"
				],
				"summary": "Export one presence group as CSV",
				"operationId": "dashboardPresencesCSV",
				"parameters": [
					{
						"name": "date",
						"in": "query",
						"type": "string",
						"required": true,
						"description": "Day"
					},
					{
						"name": "meal",
						"in": "query",
						"type": "string",
						"required": true,
						"description": "Meal"
					},
					{
						"name": "mess_hall_id",
						"in": "query",
						"type": "integer",
						"required": true,
						"description": "Mess hall ID"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/dashboard/users": {
			"get": {
				"tags": [
					"Dashboard"
				],
				"summary": "Per-user meal details",
				"operationId": "dashboardUsers",
				"parameters": [
					{
						"name": "start",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "First day"
					},
					{
						"name": "end",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Last day"
					},
					{
						"name": "unit_id",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Unit ID"
					},
					{
						"name": "mess_hall_id",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Mess hall ID"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/forecasts": {
			"get": {
				"tags": [
					"Forecasts"
				],
				"summary": "Forecast grid",
				"operationId": "listForecasts",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "User ID"
					},
					{
						"name": "start",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "First day"
					},
					{
						"name": "end",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Last day"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/forecasts/pending": {
			"put": {
				"tags": [
					"Forecasts"
				],
				"summary": "Queue forecast changes",
				"operationId": "queueForecastChanges",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "User ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Changes",
						"schema": {
							"$ref": "#/definitions/handlers.ChangesRequest"
						}
					}
				],
				"responses": {
					"202": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"503": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			},
			"get": {
				"tags": [
					"Forecasts"
				],
				"summary": "Pending forecast changes",
				"operationId": "getPendingForecasts",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "User ID"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/forecasts/pending/mess-hall": {
			"put": {
				"tags": [
					"Forecasts"
				],
				"summary": "Move a day to another mess hall",
				"operationId": "setDayMessHall",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "User ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Day and mess hall",
						"schema": {
							"$ref": "#/definitions/handlers.DayMessHallRequest"
						}
					}
				],
				"responses": {
					"202": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/forecasts/flush": {
			"post": {
				"tags": [
					"Forecasts"
				],
				"summary": "Save queued forecast changes now",
				"operationId": "flushForecasts",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "User ID"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					}
				}
			}
		},
		"/forecasts/batch": {
			"post": {
				"tags": [
					"Forecasts"
				],
				"summary": "Save forecast changes synchronously",
				"operationId": "saveForecastBatch",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "User ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Changes",
						"schema": {
							"$ref": "#/definitions/handlers.ChangesRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/me/default-mess-hall": {
			"put": {
				"tags": [
					"Forecasts"
				],
				"summary": "Set the default mess hall",
				"operationId": "setDefaultMessHall",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "User ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Mess hall",
						"schema": {
							"$ref": "#/definitions/handlers.DefaultMessHallRequest"
						}
					}
				],
				"responses": {
					"204": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/presences": {
			"get": {
				"tags": [
					"Presences"
				],
				"summary": "Attendance list for a slot",
				"operationId": "listPresences",
				"parameters": [
					{
						"name": "date",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Day"
					},
					{
						"name": "meal",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Meal"
					},
					{
						"name": "mess_hall_id",
						"in": "query",
						"type": "integer",
						"required": true,
						"description": "Mess hall ID"
					},
					{
						"name": "If-None-Match",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "ETag from a previous response"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"304": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"Presences"
				],
				"summary": "Confirm a presence",
				"operationId": "confirmPresence",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Fiscal user ID"
					},
					{
						"name": "Idempotency-Key",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Idempotency key for safe retries"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Presence",
						"schema": {
							"$ref": "#/definitions/handlers.ConfirmPresenceRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/presences/{id}": {
			"delete": {
				"tags": [
					"Presences"
				],
				"summary": "Delete a presence",
				"operationId": "deletePresence",
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "Presence ID (UUID)"
					}
				],
				"responses": {
					"204": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/presences/others": {
			"post": {
				"tags": [
					"Presences"
				],
				"summary": "Record a walk-in",
				"operationId": "addOtherPresence",
				"parameters": [
					{
						"name": "X-User-ID",
						"in": "header",
						"type": "string",
						"required": false,
						"description": "Fiscal user ID"
					},
					{
						"name": "body",
						"in": "body",
						"required": true,
						"description": "Slot",
						"schema": {
							"$ref": "#/definitions/handlers.SlotRequest"
						}
					}
				],
				"responses": {
					"201": {
						"description": "Created"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/presences/others/count": {
			"get": {
				"tags": [
					"Presences"
				],
				"summary": "Count walk-ins for a slot",
				"operationId": "countOtherPresences",
				"parameters": [
					{
						"name": "date",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Day"
					},
					{
						"name": "meal",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Meal"
					},
					{
						"name": "mess_hall_id",
						"in": "query",
						"type": "integer",
						"required": true,
						"description": "Mess hall ID"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/mess-halls": {
			"get": {
				"tags": [
					"Reference"
				],
				"summary": "List mess halls",
				"operationId": "listMessHalls",
				"parameters": [
					{
						"name": "unit_id",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Unit ID"
					},
					{
						"name": "q",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Search text"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/mess-halls/{id}": {
			"get": {
				"tags": [
					"Reference"
				],
				"summary": "Get a mess hall",
				"operationId": "getMessHall",
				"parameters": [
					{
						"name": "id",
						"in": "path",
						"type": "integer",
						"required": true,
						"description": "Mess hall ID"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/units": {
			"get": {
				"tags": [
					"Reference"
				],
				"summary": "List units",
				"operationId": "listUnits",
				"responses": {
					"200": {
						"description": "OK"
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		},
		"/reports/{name}": {
			"get": {
				"tags": [
					"Reports"
				],
				"summary": "Run a BI report",
				"operationId": "runReport",
				"parameters": [
					{
						"name": "name",
						"in": "path",
						"type": "string",
						"required": true,
						"description": "Report"
					},
					{
						"name": "date",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Single day"
					},
					{
						"name": "startDate",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "First day"
					},
					{
						"name": "endDate",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "Last day"
					},
					{
						"name": "order",
						"in": "query",
						"type": "string",
						"required": false,
						"description": "col:asc|desc,..."
					},
					{
						"name": "limit",
						"in": "query",
						"type": "integer",
						"required": false,
						"description": "Row limit"
					}
				],
				"responses": {
					"200": {
						"description": "OK"
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					},
					"500": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/handlers.ErrorResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"handlers.ErrorResponse": {
			"type": "object",
			"properties": {
				"code": {
					"type": "string"
				},
				"message": {
					"type": "string"
				},
				"request_id": {
					"type": "string"
				}
			}
		},
		"handlers.ChangesRequest": {
			"type": "object"
		},
		"handlers.CheckinFilterRequest": {
			"type": "object"
		},
		"handlers.ConfirmPresenceRequest": {
			"type": "object"
		},
		"handlers.DayMessHallRequest": {
			"type": "object"
		},
		"handlers.DecisionRequest": {
			"type": "object"
		},
		"handlers.DefaultMessHallRequest": {
			"type": "object"
		},
		"handlers.ScanRequest": {
			"type": "object"
		},
		"handlers.SelfCheckinRequest": {
			"type": "object"
		},
		"handlers.SlotRequest": {
			"type": "object"
		}
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "SISUB API",
	Description:      "Meal forecasts, attendance check-in, dashboards and BI reports for military mess halls.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

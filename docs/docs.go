// Package docs registers the OpenAPI document served at /swagger/doc.json.
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
        "/auth/customers/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Log in with email and password",
                "parameters": [
                    {"description": "credentials", "name": "credentials", "in": "body", "required": true, "schema": {"$ref": "#/definitions/account.LoginInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.TokenPair"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/buses": {
            "get": {
                "produces": ["application/json"],
                "tags": ["buses"],
                "summary": "List buses",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.Bus"}}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["buses"],
                "summary": "Register a bus and its seats",
                "parameters": [
                    {"description": "bus", "name": "bus", "in": "body", "required": true, "schema": {"$ref": "#/definitions/inventory.RegisterBusInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Bus"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/buses/{id}": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["buses"],
                "summary": "Edit a bus, including its seat count",
                "parameters": [
                    {"type": "integer", "description": "bus id", "name": "id", "in": "path", "required": true},
                    {"description": "fields to change", "name": "bus", "in": "body", "required": true, "schema": {"$ref": "#/definitions/inventory.EditBusInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Bus"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/buses/{id}/availability": {
            "get": {
                "produces": ["application/json"],
                "tags": ["buses"],
                "summary": "Seat availability on the bus's active schedule",
                "parameters": [
                    {"type": "integer", "description": "bus id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/allocator.Availability"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/schedules": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["schedules"],
                "summary": "Create a schedule for a bus",
                "parameters": [
                    {"description": "schedule", "name": "schedule", "in": "body", "required": true, "schema": {"$ref": "#/definitions/inventory.CreateScheduleInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Schedule"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/bookings": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Reserves every requested seat or none of them.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["bookings"],
                "summary": "Book seats on a bus",
                "parameters": [
                    {"description": "booking", "name": "booking", "in": "body", "required": true, "schema": {"$ref": "#/definitions/booking.CreateBookingInput"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.Booking"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "409": {"description": "seats already booked", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/bookings/{id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["bookings"],
                "summary": "Cancel a booking and release its seats",
                "parameters": [
                    {"type": "integer", "description": "booking id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Booking"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/bookings/{id}/ticket": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "tags": ["bookings"],
                "summary": "Download the booking's e-ticket",
                "parameters": [
                    {"type": "integer", "description": "booking id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}}
                }
            }
        }
    },
    "definitions": {
        "account.LoginInput": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "allocator.Availability": {
            "type": "object",
            "properties": {
                "available": {"type": "array", "items": {"type": "string"}},
                "available_seats": {"type": "integer"},
                "booked": {"type": "array", "items": {"type": "string"}},
                "bus_id": {"type": "integer"},
                "number_of_seats": {"type": "integer"},
                "occupied_seats": {"type": "integer"},
                "schedule_id": {"type": "integer"}
            }
        },
        "api.errorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "error": {"type": "string"},
                "request_id": {"type": "string"},
                "seats": {"type": "array", "items": {"type": "string"}}
            }
        },
        "auth.TokenPair": {
            "type": "object",
            "properties": {
                "access_expires_at": {"type": "string"},
                "access_token": {"type": "string"},
                "refresh_expires_at": {"type": "string"},
                "refresh_token": {"type": "string"}
            }
        },
        "booking.CreateBookingInput": {
            "type": "object",
            "properties": {
                "bus_id": {"type": "integer"},
                "departure_time": {"type": "string", "example": "08:00:00"},
                "destination": {"type": "string"},
                "number_of_seats": {"type": "integer"},
                "pickup_address": {"type": "string"},
                "seat_labels": {"type": "array", "items": {"type": "string"}, "example": ["S001", "S002"]}
            }
        },
        "domain.Booking": {
            "type": "object",
            "properties": {
                "booking_date": {"type": "string"},
                "bus_id": {"type": "integer"},
                "created_at": {"type": "string"},
                "customer_id": {"type": "integer"},
                "departure_time": {"type": "string"},
                "destination": {"type": "string"},
                "id": {"type": "integer"},
                "number_of_seats": {"type": "integer"},
                "pickup_address": {"type": "string"},
                "reference": {"type": "string"},
                "schedule_id": {"type": "integer"},
                "seat_labels": {"type": "array", "items": {"type": "string"}},
                "total_cost": {"type": "integer"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Bus": {
            "type": "object",
            "properties": {
                "cost_per_seat": {"type": "integer"},
                "created_at": {"type": "string"},
                "driver_id": {"type": "integer"},
                "id": {"type": "integer"},
                "image": {"type": "string"},
                "name": {"type": "string"},
                "number_of_seats": {"type": "integer"},
                "number_plate": {"type": "string"},
                "route": {"type": "string"},
                "travel_time": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.Schedule": {
            "type": "object",
            "properties": {
                "arrival_at": {"type": "string"},
                "available_seats": {"type": "integer"},
                "bus_id": {"type": "integer"},
                "created_at": {"type": "string"},
                "departure_at": {"type": "string"},
                "id": {"type": "integer"},
                "occupied_seats": {"type": "integer"},
                "travel_date": {"type": "string"}
            }
        },
        "inventory.CreateScheduleInput": {
            "type": "object",
            "properties": {
                "arrival_time": {"type": "string", "example": "14:00:00"},
                "bus_id": {"type": "integer"},
                "departure_time": {"type": "string", "example": "08:00:00"},
                "seat_count": {"type": "integer"},
                "travel_date": {"type": "string", "example": "2026-03-11"}
            }
        },
        "inventory.EditBusInput": {
            "type": "object",
            "properties": {
                "cost_per_seat": {"type": "integer"},
                "image": {"type": "string"},
                "name": {"type": "string"},
                "number_of_seats": {"type": "integer"},
                "number_plate": {"type": "string"},
                "route": {"type": "string"},
                "travel_time": {"type": "string"}
            }
        },
        "inventory.RegisterBusInput": {
            "type": "object",
            "properties": {
                "cost_per_seat": {"type": "integer"},
                "driver_id": {"type": "integer"},
                "image": {"type": "string"},
                "name": {"type": "string"},
                "number_of_seats": {"type": "integer"},
                "number_plate": {"type": "string"},
                "route": {"type": "string"},
                "travel_time": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Bus booking API",
	Description:      "Seat inventory, schedules and bookings for a bus ticketing service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

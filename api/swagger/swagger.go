package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Consultly API",
        "description": "Consultation booking marketplace",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Availability", "description": "Consultant slot discovery"},
        {"name": "Bookings", "description": "Booking lifecycle"},
        {"name": "Reviews", "description": "Ratings and reviews"},
        {"name": "Schedule", "description": "Working hours and holidays"},
        {"name": "Exports", "description": "Booking ledger exports"}
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "responses": {
                    "200": {"description": "Token issued"},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Profile"}
                }
            }
        },
        "/consultants/{id}/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List bookable slots for a consultant on a date",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "date", "in": "query", "type": "string", "required": true},
                    {"name": "duration", "in": "query", "type": "integer"},
                    {"name": "buffer", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Free slots"}
                }
            }
        },
        "/bookings": {
            "get": {
                "tags": ["Bookings"],
                "summary": "List bookings visible to the caller",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Bookings"}
                }
            },
            "post": {
                "tags": ["Bookings"],
                "summary": "Place a booking hold",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Hold placed"},
                    "409": {"description": "Slot conflict"},
                    "422": {"description": "Outside working hours or on holiday"}
                }
            }
        },
        "/bookings/{id}": {
            "get": {
                "tags": ["Bookings"],
                "summary": "Fetch a booking",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Booking"},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/bookings/{id}/confirm": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Confirm a pending booking",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Confirmed"},
                    "409": {"description": "Hold expired or invalid transition"}
                }
            }
        },
        "/bookings/{id}/cancel": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Cancel a booking",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Cancelled"},
                    "409": {"description": "Invalid transition"}
                }
            }
        },
        "/bookings/{id}/review": {
            "post": {
                "tags": ["Reviews"],
                "summary": "Review a completed booking",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Review created"},
                    "422": {"description": "Booking not completed"}
                }
            }
        },
        "/reviews/{id}": {
            "put": {
                "tags": ["Reviews"],
                "summary": "Rewrite an existing review",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Updated"}
                }
            },
            "delete": {
                "tags": ["Reviews"],
                "summary": "Soft-delete a review",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/reviews/{id}/restore": {
            "post": {
                "tags": ["Reviews"],
                "summary": "Restore a soft-deleted review",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Restored"}
                }
            }
        },
        "/consultants/{id}/reviews": {
            "get": {
                "tags": ["Reviews"],
                "summary": "List a consultant's visible reviews",
                "responses": {
                    "200": {"description": "Reviews"}
                }
            }
        },
        "/consultants/{id}/working-hours": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List weekly working hours",
                "responses": {
                    "200": {"description": "Working hours"}
                }
            },
            "post": {
                "tags": ["Schedule"],
                "summary": "Add a weekly working hour window",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/consultants/{id}/holidays": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List holidays",
                "responses": {
                    "200": {"description": "Holidays"}
                }
            },
            "post": {
                "tags": ["Schedule"],
                "summary": "Block a calendar date",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/consultants/{id}/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Export a consultant's booking ledger",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Signed download link"}
                }
            }
        },
        "/exports/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a generated ledger",
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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

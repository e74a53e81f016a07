/*
Package schema defines the core types for declarative entity definitions.

An entity is declared once, with fields, constraints, custom operations, and
a per-channel access policy, and every interface surface is derived from the
declaration: REST routes, CLI commands, AI tool descriptors, and the OpenAPI
document.

# Entity Declaration

A minimal entity declaration in YAML:

	entity: Invoice
	description: A billable invoice.

	fields:
	  - name: amount
	    kind: decimal
	    required: true
	    constraints: { min: 0 }
	  - name: customer
	    kind: reference
	    required: true
	    constraints: { target: Customer, indexed: true }
	  - name: paid
	    kind: boolean
	    default: false

	access:
	  api: { include: [list, get, create] }
	  cli: true
	  tool: false

	operations:
	  - name: send
	    public: true
	    params:
	      - { name: recipient, kind: text }
	    returns: boolean

# Field Kinds

Supported field kinds:

  - text:      Text value
  - integer:   Whole number
  - decimal:   Floating-point number
  - boolean:   True/false value
  - datetime:  Date/time value (RFC 3339 text on the wire)
  - json:      Arbitrary JSON object
  - reference: Id of a record of another entity (requires a constraint target)

Every entity also carries implicit id, created_at, and updated_at fields;
those names are reserved.

# Actions and Operations

Every entity has five default actions: list, get, create, update, delete.
Custom operations extend them and must be marked public to be exposable:

	operations:
	  - name: send
	    public: true
	    params: [{ name: recipient, kind: text }]

# Access Policies

Each channel (api, cli, tool) carries its own policy. A policy is a boolean
or an include/exclude mapping:

	access:
	  api: true                        # the five default actions
	  cli: { include: [list, get] }    # only these
	  tool: false                      # nothing

Exclusion wins over inclusion, and custom operations always require an
explicit include entry; a boolean true never exposes them. The same
resolution rules drive every generator, so a policy decision can never
differ between channels.

# Parsing

Load declarations from YAML:

	e, err := schema.ParseFile("entities/invoice.yaml")
	entities, err := schema.ParseDir("entities/")

All declarations are validated on parse. Invalid declarations return an error.
*/
package schema

// Package template defines the template engine seam used by the HTML renderer.
package template
